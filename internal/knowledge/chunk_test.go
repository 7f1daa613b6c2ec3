package knowledge

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewSplitter_Validation(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		overlap   int
		wantError bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			if (err != nil) != tt.wantError {
				t.Errorf("NewSplitter(%d, %d) error = %v, wantError %v", tt.size, tt.overlap, err, tt.wantError)
			}
		})
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	if err != nil {
		t.Fatal(err)
	}

	got := s.Split("How do I reset my password?")
	if len(got) != 1 {
		t.Fatalf("Split() = %d chunks, want 1", len(got))
	}
	if got[0] != "How do I reset my password?" {
		t.Errorf("Split() = %q", got[0])
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s, err := NewSplitter(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := s.Split("   \n\n  "); got != nil {
		t.Errorf("Split(whitespace) = %v, want nil", got)
	}
}

func TestSplit_RespectsChunkSize(t *testing.T) {
	s, err := NewSplitter(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	for i := range 200 {
		fmt.Fprintf(&b, "word%03d ", i)
	}

	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("Split() = %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d has %d bytes, exceeds size 100: %q", i, len(c), c)
		}
	}
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	s, err := NewSplitter(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	for i := range 100 {
		fmt.Fprintf(&b, "word%03d ", i)
	}

	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("Split() = %d chunks, want several", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i])[0]
		if !strings.Contains(chunks[i-1], first) {
			t.Errorf("chunk %d starts with %q, not present in chunk %d", i, first, i-1)
		}
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	s, err := NewSplitter(60, 0)
	if err != nil {
		t.Fatal(err)
	}

	text := "First paragraph about billing.\n\nSecond paragraph about refunds."
	chunks := s.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("Split() = %v, want 2 paragraph chunks", chunks)
	}
	if chunks[0] != "First paragraph about billing." {
		t.Errorf("chunk 0 = %q", chunks[0])
	}
	if chunks[1] != "Second paragraph about refunds." {
		t.Errorf("chunk 1 = %q", chunks[1])
	}
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	s, err := NewSplitter(50, 0)
	if err != nil {
		t.Fatal(err)
	}

	chunks := s.Split(strings.Repeat("x", 175))
	if len(chunks) != 4 {
		t.Fatalf("Split() = %d chunks, want 4", len(chunks))
	}
	total := 0
	for i, c := range chunks {
		if len(c) > 50 {
			t.Errorf("chunk %d has %d bytes, exceeds size 50", i, len(c))
		}
		total += len(c)
	}
	if total != 175 {
		t.Errorf("chunks cover %d bytes, want 175", total)
	}
}

func TestSplit_CoversAllWords(t *testing.T) {
	s, err := NewSplitter(80, 10)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	for i := range 50 {
		fmt.Fprintf(&b, "token%02d ", i)
	}

	joined := strings.Join(s.Split(b.String()), " ")
	for i := range 50 {
		w := fmt.Sprintf("token%02d", i)
		if !strings.Contains(joined, w) {
			t.Errorf("word %q lost during splitting", w)
		}
	}
}
