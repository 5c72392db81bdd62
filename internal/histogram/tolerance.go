package histogram

import (
	"errors"
	"fmt"
)

// MaxProbability — верхняя граница запрашиваемой вероятности.
const MaxProbability = 0.999

// StandardProbabilities — набор вероятностей для вывода всех допусков сразу.
var StandardProbabilities = []float64{0.90, 0.95, 0.99, 0.995, 0.999}

var (
	// ErrInsufficientData — в гистограмме нет ни одного отсчёта.
	ErrInsufficientData = errors.New("histogram: insufficient data")
	// ErrProbability — вероятность вне интервала (0, 1).
	ErrProbability = errors.New("histogram: probability out of range")
)

// Estimate — допуск (в корзинах, т.е. мкс) для одной вероятности.
type Estimate struct {
	Probability float64
	Tolerance   int
}

// ClampProbability ограничивает p сверху значением MaxProbability.
func ClampProbability(p float64) float64 {
	if p > MaxProbability {
		return MaxProbability
	}
	return p
}

// Tolerance вычисляет симметричную полуширину интервала вокруг моды, содержащего
// не менее probability массы распределения counts.
//
// Корзины с наименьшей ненулевой вероятностью обнуляются по одной (при равенстве —
// с меньшим индексом), пока сумма удалённого не достигнет 1-probability; корзина,
// на которой порог достигнут, остаётся. Допуск — большее из расстояний от моды до
// корзин, соседних с крайними оставшимися.
func Tolerance(counts []int, probability float64) (int, error) {
	if !(probability > 0 && probability < 1) {
		return 0, fmt.Errorf("%w: %v", ErrProbability, probability)
	}
	n := len(counts)
	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	if sum <= 0 {
		return 0, ErrInsufficientData
	}

	prob := make([]float64, n)
	norm := 1.0 / sum
	for i, c := range counts {
		prob[i] = float64(c) * norm
	}

	tailProb := 1.0 - probability
	accumProb := 0.0
	for accumProb < tailProb {
		minIdx := -1
		for i, p := range prob {
			if p != 0 && (minIdx < 0 || p < prob[minIdx]) {
				minIdx = i
			}
		}
		if minIdx < 0 {
			break
		}
		accumProb += prob[minIdx]
		if accumProb < tailProb {
			prob[minIdx] = 0
		}
	}

	maxIdx := 0
	maxVal := 0.0
	for i, p := range prob {
		if p > maxVal {
			maxVal = p
			maxIdx = i
		}
	}

	lowIdx, hiIdx := -1, n
	for i := 0; i < n; i++ {
		if prob[i] > 0 {
			lowIdx = i - 1
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		if prob[i] > 0 {
			hiIdx = i + 1
			break
		}
	}

	hiTol := hiIdx - maxIdx
	lowTol := maxIdx - lowIdx
	if lowTol > hiTol {
		return lowTol, nil
	}
	return hiTol, nil
}

// EstimateFile читает стабильный файл гистограммы из length корзин
// (length <= 0 означает DefaultLength) и вычисляет допуск для probability.
func EstimateFile(path string, length int, probability float64) (int, error) {
	s, err := readStable(path, length)
	if err != nil {
		return 0, err
	}
	return Tolerance(s.Counts, probability)
}

// EstimateAll читает файл один раз и вычисляет допуск для каждой вероятности независимо.
func EstimateAll(path string, length int, probabilities []float64) ([]Estimate, error) {
	s, err := readStable(path, length)
	if err != nil {
		return nil, err
	}
	out := make([]Estimate, 0, len(probabilities))
	for _, p := range probabilities {
		tol, err := Tolerance(s.Counts, p)
		if err != nil {
			return nil, fmt.Errorf("probability %g: %w", p, err)
		}
		out = append(out, Estimate{Probability: p, Tolerance: tol})
	}
	return out, nil
}

// readStable читает файл и проверяет, что в нём ровно length строк.
func readStable(path string, length int) (*Snapshot, error) {
	if length <= 0 {
		length = DefaultLength
	}
	s, err := ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	if s.Len() != length {
		return nil, fmt.Errorf("%s: %w: %d buckets, want %d", path, ErrMalformed, s.Len(), length)
	}
	return s, nil
}
