package file

import (
	"fmt"
	"io/fs"
	"math"
	"sort"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.Index = (*Index)(nil)

// Index is a brute-force cosine similarity index keyed by fingerprint.
type Index struct {
	namespace string
	dims      int
	records   []domain.IndexRecord
	mags      []float64
	byFP      map[domain.Fingerprint]int
	meta      domain.IndexMetadata

	// saved is meta.json as of the last load or save, nil for a new index.
	saved fs.FileInfo
}

// NewIndex creates an empty index. A dims of 0 is fixed by the first insert.
func NewIndex(namespace string, dims int) *Index {
	return &Index{
		namespace: namespace,
		dims:      dims,
		byFP:      make(map[domain.Fingerprint]int),
		meta: domain.IndexMetadata{
			Namespace:  namespace,
			Dimensions: dims,
			Sources:    make(map[domain.Fingerprint]domain.SourceEntry),
		},
	}
}

// Namespace returns the namespace the index belongs to.
func (i *Index) Namespace() string {
	return i.namespace
}

// Len returns the number of records.
func (i *Index) Len() int {
	return len(i.records)
}

// Dimensions returns the vector size.
func (i *Index) Dimensions() int {
	return i.dims
}

// Has reports whether a record with the fingerprint exists.
func (i *Index) Has(fp domain.Fingerprint) bool {
	_, ok := i.byFP[fp]
	return ok
}

// Insert adds a record unless its fingerprint is already present.
func (i *Index) Insert(rec domain.IndexRecord) (bool, error) {
	if rec.Fingerprint == "" {
		return false, fmt.Errorf("%w: record has no fingerprint", domain.ErrInvalidInput)
	}
	if i.Has(rec.Fingerprint) {
		return false, nil
	}
	if len(rec.Embedding) == 0 {
		return false, fmt.Errorf("%w: record %s has no embedding", domain.ErrInvalidInput, rec.Fingerprint.Short())
	}
	if i.dims == 0 {
		i.dims = len(rec.Embedding)
	}
	if len(rec.Embedding) != i.dims {
		return false, fmt.Errorf("%w: embedding has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(rec.Embedding), i.dims)
	}

	rec.Embedding = append([]float32(nil), rec.Embedding...)
	i.byFP[rec.Fingerprint] = len(i.records)
	i.records = append(i.records, rec)
	i.mags = append(i.mags, magnitude(rec.Embedding))
	return true, nil
}

// Search returns up to k records by descending cosine similarity.
// A k of 0 or less returns every record.
func (i *Index) Search(query []float32, k int) ([]domain.RetrievedChunk, error) {
	if len(i.records) == 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if len(query) != i.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(query), i.dims)
	}

	type scored struct {
		idx   int
		score float64
	}
	qm := magnitude(query)
	scores := make([]scored, len(i.records))
	for j := range i.records {
		s := 0.0
		if qm != 0 && i.mags[j] != 0 {
			s = dot(query, i.records[j].Embedding) / (qm * i.mags[j])
		}
		if math.IsNaN(s) {
			s = 0
		}
		scores[j] = scored{idx: j, score: s}
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	if k <= 0 || k > len(scores) {
		k = len(scores)
	}
	out := make([]domain.RetrievedChunk, k)
	for n := 0; n < k; n++ {
		rec := i.records[scores[n].idx]
		out[n] = domain.RetrievedChunk{
			Text:     rec.Text,
			Score:    scores[n].score,
			Metadata: rec.Metadata,
		}
	}
	return out, nil
}

// Records returns the records in insertion order.
func (i *Index) Records() []domain.IndexRecord {
	out := make([]domain.IndexRecord, len(i.records))
	copy(out, i.records)
	return out
}

// Metadata returns a copy of the sidecar bookkeeping.
func (i *Index) Metadata() domain.IndexMetadata {
	return copyMetadata(i.meta)
}

// SetMetadata replaces the sidecar bookkeeping.
func (i *Index) SetMetadata(meta domain.IndexMetadata) {
	i.meta = copyMetadata(meta)
}

func copyMetadata(meta domain.IndexMetadata) domain.IndexMetadata {
	sources := make(map[domain.Fingerprint]domain.SourceEntry, len(meta.Sources))
	for fp, entry := range meta.Sources {
		sources[fp] = entry
	}
	meta.Sources = sources
	if meta.Ingestions != nil {
		ingestions := make([]domain.IngestionEntry, len(meta.Ingestions))
		for n, entry := range meta.Ingestions {
			entry.Files = append([]string(nil), entry.Files...)
			ingestions[n] = entry
		}
		meta.Ingestions = ingestions
	}
	return meta
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 { return math.Sqrt(dot(v, v)) }
