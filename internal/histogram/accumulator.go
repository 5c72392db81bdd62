// Package histogram — накопление распределения задержек прерывания, сохранение
// его в файл с ежедневной ротацией и оценка допуска (tolerance) по сохранённому файлу.
package histogram

// DefaultLength — число корзин гистограммы (1 корзина = 1 мкс).
const DefaultLength = 61

// DefaultWarmup — число первых сэмплов, по которым ищется центр шкалы.
const DefaultWarmup = 60

// Phase — фаза накопителя: поиск центра или накопление.
type Phase int

const (
	PhaseSeeking      Phase = iota // центр ещё подстраивается, корзины не меняются
	PhaseAccumulating              // центр зафиксирован, каждый сэмпл попадает в корзину
)

func (p Phase) String() string {
	switch p {
	case PhaseSeeking:
		return "seeking"
	case PhaseAccumulating:
		return "accumulating"
	default:
		return "unknown"
	}
}

// Accumulator — гистограмма задержек относительно адаптивного центра.
// Корзины 0 и Len()-1 насыщаются значениями, вышедшими за шкалу.
// Не предназначен для конкурентного использования: писатель один.
type Accumulator struct {
	counts  []int
	center  int
	samples int
	warmup  int
	phase   Phase
}

// NewAccumulator создаёт накопитель на length корзин с warm-up из warmup сэмплов.
// Нулевые и отрицательные значения заменяются значениями по умолчанию.
func NewAccumulator(length, warmup int) *Accumulator {
	if length <= 0 {
		length = DefaultLength
	}
	if warmup <= 0 {
		warmup = DefaultWarmup
	}
	return &Accumulator{
		counts: make([]int, length),
		warmup: warmup,
	}
}

// Add учитывает один сэмпл задержки (мкс).
// Первый сэмпл задаёт центр; следующие до конца warm-up сдвигают центр на ±1 к сэмплу.
// После warm-up сэмпл нормализуется к центру, смещается в нижнюю треть шкалы
// (запас под хвост в сторону больших задержек) и увеличивает счётчик корзины.
func (a *Accumulator) Add(delay int) {
	if a.phase == PhaseSeeking {
		switch {
		case a.samples == 0:
			a.center = delay
		case delay > a.center:
			a.center++
		case delay < a.center:
			a.center--
		}
		a.samples++
		if a.samples >= a.warmup {
			a.phase = PhaseAccumulating
		}
		return
	}

	last := len(a.counts) - 1
	idx := delay - a.center + a.bias()
	if idx > last {
		idx = last
	} else if idx < 0 {
		idx = 0
	}
	a.counts[idx]++
	a.samples++
}

// bias — смещение нуля шкалы в нижнюю треть массива.
func (a *Accumulator) bias() int {
	return (len(a.counts) - 1) / 3
}

// Phase возвращает текущую фазу.
func (a *Accumulator) Phase() Phase { return a.phase }

// Center возвращает оценку центра (после warm-up не меняется).
func (a *Accumulator) Center() int { return a.center }

// Samples возвращает число всех переданных сэмплов, включая warm-up.
func (a *Accumulator) Samples() int { return a.samples }

// Len возвращает число корзин.
func (a *Accumulator) Len() int { return len(a.counts) }

// Counts возвращает копию счётчиков корзин.
func (a *Accumulator) Counts() []int {
	out := make([]int, len(a.counts))
	copy(out, a.counts)
	return out
}

// Sum возвращает сумму счётчиков с момента последнего сброса.
func (a *Accumulator) Sum() int {
	var sum int
	for _, c := range a.counts {
		sum += c
	}
	return sum
}

// ZeroOffset — индекс-смещение нуля шкалы, как оно записывается в файл:
// корзине i соответствует задержка i - ZeroOffset().
func (a *Accumulator) ZeroOffset() int {
	return a.bias() - a.center
}

// Offset возвращает задержку (мкс), которой соответствует корзина i.
func (a *Accumulator) Offset(i int) int {
	return i - a.ZeroOffset()
}

// ResetCounts обнуляет корзины; центр, фаза и счётчик сэмплов сохраняются.
func (a *Accumulator) ResetCounts() {
	for i := range a.counts {
		a.counts[i] = 0
	}
}
