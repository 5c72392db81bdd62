package histogram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformed — файл гистограммы не соответствует формату "<offset> <count>".
var ErrMalformed = errors.New("histogram: malformed file")

// Snapshot — гистограмма, прочитанная из файла.
type Snapshot struct {
	Offsets []int // задержка корзины, мкс
	Counts  []int
}

// Len возвращает число корзин.
func (s *Snapshot) Len() int { return len(s.Counts) }

// Encode пишет гистограмму построчно: "<offset> <count>\n", корзины по возрастанию индекса.
func Encode(w io.Writer, counts []int, zeroOffset int) error {
	bw := bufio.NewWriter(w)
	for i, c := range counts {
		if _, err := fmt.Fprintf(bw, "%d %d\n", i-zeroOffset, c); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseSnapshot читает гистограмму из r. Пустые строки пропускаются.
func ParseSnapshot(r io.Reader) (*Snapshot, error) {
	s := &Snapshot{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformed, line, text)
		}
		off, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: offset: %v", ErrMalformed, line, err)
		}
		cnt, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: count: %v", ErrMalformed, line, err)
		}
		if cnt < 0 {
			return nil, fmt.Errorf("%w: line %d: negative count %d", ErrMalformed, line, cnt)
		}
		s.Offsets = append(s.Offsets, off)
		s.Counts = append(s.Counts, cnt)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read histogram: %w", err)
	}
	if len(s.Counts) == 0 {
		return nil, fmt.Errorf("%w: no buckets", ErrMalformed)
	}
	return s, nil
}

// ReadSnapshot читает гистограмму из файла path.
// Отсутствие файла проверяется через errors.Is(err, fs.ErrNotExist).
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("histogram file: %w", err)
	}
	defer f.Close()
	s, err := ParseSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
