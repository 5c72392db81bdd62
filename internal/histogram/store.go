package histogram

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Пути по умолчанию: рабочий файл накапливается, стабильный — результат прошлой эпохи.
const (
	DefaultWorkingFile = "/var/local/timer-distrib-forming"
	DefaultStableFile  = "/var/local/timer-distrib"
)

// fileMode — rw для владельца, r для остальных (читает отдельный процесс с -p).
const fileMode fs.FileMode = 0o604

// Store — периодическая запись гистограммы в рабочий файл и ротация в стабильный
// файл на границе эпохи (эпоха = EpochDays суток).
type Store struct {
	WorkingPath string
	StablePath  string
	EpochDays   int

	lastEpoch int
}

// NewStore создаёт Store. epochDays <= 0 означает одни сутки.
func NewStore(working, stable string, epochDays int) *Store {
	if epochDays <= 0 {
		epochDays = 1
	}
	return &Store{
		WorkingPath: working,
		StablePath:  stable,
		EpochDays:   epochDays,
	}
}

// LastEpoch возвращает номер эпохи последней ротации.
func (s *Store) LastEpoch() int { return s.lastEpoch }

// Flush перезаписывает рабочий файл содержимым acc. Если day попал в новую эпоху,
// рабочий файл переименовывается в стабильный, а корзины acc обнуляются (центр остаётся).
// Ошибка записи не трогает acc и откладывает ротацию до следующего успешного Flush.
func (s *Store) Flush(acc *Accumulator, day int) (rolled bool, err error) {
	if err := s.write(acc); err != nil {
		return false, err
	}

	epoch := day / s.EpochDays
	if epoch == s.lastEpoch {
		return false, nil
	}
	if err := os.Remove(s.StablePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("remove %s: %w", s.StablePath, err)
	}
	if err := os.Rename(s.WorkingPath, s.StablePath); err != nil {
		return false, fmt.Errorf("rollover %s: %w", s.WorkingPath, err)
	}
	// Эпоха фиксируется только после переименования: сбой ротации повторяется на следующем Flush.
	s.lastEpoch = epoch
	acc.ResetCounts()
	return true, nil
}

func (s *Store) write(acc *Accumulator) error {
	if err := os.Remove(s.WorkingPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.WorkingPath, err)
	}
	f, err := os.OpenFile(s.WorkingPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.WorkingPath, err)
	}
	defer f.Close()
	if err := Encode(f, acc.Counts(), acc.ZeroOffset()); err != nil {
		return fmt.Errorf("write %s: %w", s.WorkingPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.WorkingPath, err)
	}
	return nil
}
