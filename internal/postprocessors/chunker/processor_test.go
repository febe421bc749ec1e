package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.Overlap() != 25 {
			t.Errorf("expected overlap clamped to 25, got %d", p.Overlap())
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.Overlap())
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", 1000, 300, false},
		{"no overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap exceeds size", 10, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.size, tt.overlap)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSplit_Windows(t *testing.T) {
	// size 10, overlap 3, step 7: [0,10) [7,17) [14,20)
	got := Split("0123456789ABCDEFGHIJ", 10, 3)
	want := []string{"0123456789", "789ABCDEFG", "EFGHIJ"}

	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplit_ShortText(t *testing.T) {
	for _, text := range []string{"short", strings.Repeat("x", 100)} {
		got := Split(text, 100, 20)
		if len(got) != 1 || got[0] != text {
			t.Errorf("expected single chunk equal to input, got %q", got)
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := Split("", 100, 20); got != nil {
		t.Errorf("expected nil, got %q", got)
	}
}

func TestSplit_NoTrailingOverlapOnlyChunk(t *testing.T) {
	// 17 characters end exactly at the second window.
	got := Split(strings.Repeat("a", 17), 10, 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
}

func TestSplit_OverlapInvariant(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	sizes := []struct{ size, overlap int }{
		{100, 20}, {64, 0}, {50, 49}, {1000, 300}, {7, 3},
	}

	for _, s := range sizes {
		chunks := Split(text, s.size, s.overlap)
		for i := 1; i < len(chunks); i++ {
			prev := []rune(chunks[i-1])
			cur := []rune(chunks[i])
			head := string(cur[:s.overlap])
			tail := string(prev[len(prev)-s.overlap:])
			if head != tail {
				t.Fatalf("size %d overlap %d chunk %d: head %q != tail %q", s.size, s.overlap, i, head, tail)
			}
		}
		for i, c := range chunks {
			if n := utf8.RuneCountInString(c); n > s.size {
				t.Errorf("chunk %d has %d runes, max %d", i, n, s.size)
			}
		}
	}
}

func TestSplit_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 25)
	chunks := Split(text, 10, 2)

	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
	if utf8.RuneCountInString(chunks[0]) != 10 {
		t.Errorf("expected 10 runes in first chunk, got %d", utf8.RuneCountInString(chunks[0]))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30)
	a := Split(text, 40, 10)
	b := Split(text, 40, 10)
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Error("expected identical output for identical input")
	}
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := New()
	doc := &domain.Document{ID: "test-doc"}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_LargeContent(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	doc := &domain.Document{
		ID:      "test-doc",
		Content: strings.Repeat("x", 250),
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Windows start at 0, 80, 160.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	seenIDs := make(map[string]bool)
	for i, chunk := range chunks {
		if seenIDs[chunk.ID] {
			t.Errorf("duplicate chunk ID: %s", chunk.ID)
		}
		seenIDs[chunk.ID] = true

		if chunk.Position != i {
			t.Errorf("expected position %d, got %d", i, chunk.Position)
		}
		if chunk.DocumentID != doc.ID {
			t.Errorf("expected DocumentID '%s', got '%s'", doc.ID, chunk.DocumentID)
		}
		if chunk.Metadata["offset"] != i*80 {
			t.Errorf("expected offset %d, got %v", i*80, chunk.Metadata["offset"])
		}
	}
}

func TestProcessor_Process_IgnoresInputChunks(t *testing.T) {
	p := New(WithChunkSize(100))
	existing := []domain.Chunk{{ID: "existing", Content: "should be ignored"}}
	doc := &domain.Document{ID: "test-doc", Content: "New content to chunk"}

	chunks, err := p.Process(context.Background(), doc, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, chunk := range chunks {
		if chunk.ID == "existing" {
			t.Error("existing chunks should be ignored")
		}
	}
}
