package postprocessors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/postprocessors/chunker"
	"github.com/custodia-labs/docportal/internal/postprocessors/fingerprint"
)

// Builder creates a processor from its configuration table.
type Builder func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names, as written in pipeline configs, to builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry holding the built-in "chunker" and
// "fingerprint" processors.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register(chunker.Name, buildChunker)
	r.Register(fingerprint.Name, func(map[string]any) (driven.PostProcessor, error) {
		return fingerprint.New(), nil
	})
	return r
}

// Register adds or replaces the builder for name.
func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

// Names returns the registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline builds the processors cfg lists, in order.
func (r *Registry) Pipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: pipeline has no processors", domain.ErrValidation)
	}

	procs := make([]driven.PostProcessor, 0, len(cfg.Processors))
	for _, name := range cfg.Processors {
		build, ok := r.builders[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown processor %q (available: %s)",
				domain.ErrUnsupportedType, name, strings.Join(r.Names(), ", "))
		}
		proc, err := build(cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", name, err)
		}
		procs = append(procs, proc)
	}
	return NewPipeline(procs...), nil
}

// buildChunker reads chunk_size and overlap. A missing chunk_size keeps the
// default; an explicit overlap of 0 is honoured.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option
	if size, ok := intValue(cfg["chunk_size"]); ok && size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := intValue(cfg["overlap"]); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	p := chunker.New(opts...)
	if err := chunker.Validate(p.ChunkSize(), p.Overlap()); err != nil {
		return nil, err
	}
	return p, nil
}

// intValue accepts the integer shapes TOML, YAML and JSON decoders produce.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
