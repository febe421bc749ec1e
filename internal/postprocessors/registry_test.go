package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/fingerprint"
	"github.com/custodia-labs/docportal/internal/postprocessors/chunker"
)

func TestNewRegistry_BuiltIns(t *testing.T) {
	assert.Equal(t, []string{"chunker", "fingerprint"}, NewRegistry().Names())
}

func TestRegistry_RegisterCustom(t *testing.T) {
	r := NewRegistry()
	var seen map[string]any
	r.Register("upper", func(cfg map[string]any) (driven.PostProcessor, error) {
		seen = cfg
		return &mockProcessor{name: "upper"}, nil
	})

	p, err := r.Pipeline(domain.PipelineConfig{
		Processors:       []string{"chunker", "upper"},
		ProcessorConfigs: map[string]map[string]any{"upper": {"mode": "all"}},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"chunker", "upper"}, p.Names())
	assert.Equal(t, map[string]any{"mode": "all"}, seen)
	assert.Equal(t, []string{"chunker", "fingerprint", "upper"}, r.Names())
}

func TestRegistry_PipelineChunkerConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         map[string]any
		wantSize    int
		wantOverlap int
	}{
		{"toml integers", map[string]any{"chunk_size": int64(500), "overlap": int64(100)}, 500, 100},
		{"json numbers", map[string]any{"chunk_size": float64(400), "overlap": float64(40)}, 400, 40},
		{"defaults", nil, chunker.DefaultChunkSize, chunker.DefaultChunkOverlap},
		{"zero overlap kept", map[string]any{"chunk_size": 100, "overlap": 0}, 100, 0},
		{"non numeric ignored", map[string]any{"chunk_size": "big"}, chunker.DefaultChunkSize, chunker.DefaultChunkOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRegistry().Pipeline(domain.PipelineConfig{
				Processors:       []string{"chunker"},
				ProcessorConfigs: map[string]map[string]any{"chunker": tt.cfg},
			})
			require.NoError(t, err)

			c := p.processors[0].(*chunker.Processor)
			assert.Equal(t, tt.wantSize, c.ChunkSize())
			assert.Equal(t, tt.wantOverlap, c.Overlap())
		})
	}
}

func TestRegistry_PipelineFingerprintsChunks(t *testing.T) {
	p, err := NewRegistry().Pipeline(domain.PipelineConfigFor(domain.IngestionSettings{ChunkSize: 10, Overlap: 2}))
	require.NoError(t, err)
	assert.Equal(t, []string{"chunker", "fingerprint"}, p.Names())

	chunks, err := p.Process(context.Background(), &domain.Document{ID: "doc", Content: strings.Repeat("abcde", 5)})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, fingerprint.Of(c.Content), c.Fingerprint)
	}
}

func TestRegistry_PipelineErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Pipeline(domain.PipelineConfig{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.Pipeline(domain.PipelineConfig{Processors: []string{"stemmer"}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "available: chunker, fingerprint")

	_, err = r.Pipeline(domain.PipelineConfigFor(domain.IngestionSettings{ChunkSize: 100, Overlap: 150}))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "processor chunker")

	boom := errors.New("boom")
	r.Register("broken", func(map[string]any) (driven.PostProcessor, error) { return nil, boom })
	_, err = r.Pipeline(domain.PipelineConfig{Processors: []string{"broken"}})
	assert.ErrorIs(t, err, boom)
}
