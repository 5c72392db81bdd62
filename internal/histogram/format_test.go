package histogram

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, []int{3, 0, 7}, 1); err != nil {
		t.Fatal(err)
	}
	want := "-1 3\n0 0\n1 7\n"
	if buf.String() != want {
		t.Errorf("Encode = %q, want %q", buf.String(), want)
	}
}

func TestParseSnapshot(t *testing.T) {
	s, err := ParseSnapshot(strings.NewReader("\n-2 5\r\n-1 0\n\n0 12\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}
	if s.Offsets[0] != -2 || s.Offsets[2] != 0 {
		t.Errorf("offsets %v", s.Offsets)
	}
	if s.Counts[0] != 5 || s.Counts[1] != 0 || s.Counts[2] != 12 {
		t.Errorf("counts %v", s.Counts)
	}
}

func TestParseSnapshot_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"\n\n",
		"1\n",
		"1 2 3\n",
		"a 2\n",
		"1 b\n",
		"1 -4\n",
	} {
		if _, err := ParseSnapshot(strings.NewReader(in)); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseSnapshot(%q): ожидали ErrMalformed, got %v", in, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	hists := [][]int{
		{0},
		{1, 2, 3, 4, 5},
		{1 << 30, 0, 17, 0, 999999},
		synthetic(),
	}
	for _, counts := range hists {
		var buf bytes.Buffer
		if err := Encode(&buf, counts, 7); err != nil {
			t.Fatal(err)
		}
		s, err := ParseSnapshot(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if s.Len() != len(counts) {
			t.Fatalf("len %d != %d", s.Len(), len(counts))
		}
		for i := range counts {
			if s.Counts[i] != counts[i] || s.Offsets[i] != i-7 {
				t.Errorf("bucket %d: (%d %d), want (%d %d)", i, s.Offsets[i], s.Counts[i], i-7, counts[i])
			}
		}
	}
}
