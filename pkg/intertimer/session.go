package intertimer

import (
	"time"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/config"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/histogram"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/source"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/syncdelay"
)

const (
	secsPerMin = 60
	secsPerDay = 86400
)

// Session — состояние повторяющегося режима: распределение, счётчики
// секунд/минут/дней и сон до следующего импульса.
type Session struct {
	acc   *histogram.Accumulator
	store *histogram.Store

	lead  int
	start int
	sleep bool

	seq     int
	seconds int
	minutes int
	days    int
	next    syncdelay.Duration
}

// NewSession создаёт сессию по конфигу; sleep=false отключает сон между прерываниями.
func NewSession(cfg *config.Config, sleep bool) *Session {
	h := cfg.Histogram
	return &Session{
		acc:   histogram.NewAccumulator(h.Length, h.Warmup),
		store: histogram.NewStore(h.WorkingFile, h.StableFile, h.EpochDays),
		lead:  cfg.LeadUsec(),
		start: cfg.Sync.Start,
		sleep: sleep,
	}
}

// Record добавляет микросекунды скорректированной метки в распределение.
func (s *Session) Record(smp source.Sample) {
	s.acc.Add(smp.Usec)
}

// SleepDue возвращает сон, который нужно выполнить перед следующим чтением.
func (s *Session) SleepDue() (syncdelay.Duration, bool) {
	return s.next, s.sleep && s.seq > s.start
}

// Tick продвигает счётчики после одного прерывания: раз в минуту сохраняет
// распределение (начиная с третьей минуты), раз в сутки увеличивает день,
// после start прерываний вычисляет сон до следующего импульса от момента now.
// Ошибка сохранения не останавливает сессию.
func (s *Session) Tick(smp source.Sample, now time.Time) error {
	var flushErr error
	s.seconds++
	if s.seconds%secsPerMin == 0 {
		if s.minutes > 1 {
			_, flushErr = s.store.Flush(s.acc, s.days)
		}
		s.minutes++
	}
	if s.seconds%secsPerDay == 0 {
		s.days++
	}
	if s.sleep && s.seq >= s.start {
		s.next = syncdelay.Next(smp.Usec+s.lead, now.Nanosecond()/1000)
	}
	s.seq++
	return flushErr
}

// Accumulator — текущее распределение.
func (s *Session) Accumulator() *histogram.Accumulator { return s.acc }

// Seq — число обработанных прерываний.
func (s *Session) Seq() int { return s.seq }

// Seconds, Minutes, Days — счётчики каденции.
func (s *Session) Seconds() int { return s.seconds }
func (s *Session) Minutes() int { return s.minutes }
func (s *Session) Days() int    { return s.days }
