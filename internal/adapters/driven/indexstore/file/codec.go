package file

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

const (
	vectorsFile = "vectors.bin"
	recordsFile = "records.json"
	metaFile    = "meta.json"

	vectorMagic   = "DPVX"
	formatVersion = 1

	// headerSize is magic + version + dims + count.
	headerSize = 4 + 4 + 4 + 4
)

// recordEntry is one row of records.json.
type recordEntry struct {
	Fingerprint domain.Fingerprint    `json:"fingerprint"`
	Text        string                `json:"text"`
	Metadata    domain.RecordMetadata `json:"metadata"`
}

// metaEntry is the content of meta.json.
type metaEntry struct {
	SchemaVersion int `json:"schema_version"`
	domain.IndexMetadata
}

// encodeVectors serialises the embeddings of recs as a vectors.bin payload.
func encodeVectors(dims int, recs []domain.IndexRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + 4*dims*len(recs))
	buf.WriteString(vectorMagic)

	header := []uint32{formatVersion, uint32(dims), uint32(len(recs))}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("writing vector header: %w", err)
	}
	for _, rec := range recs {
		if len(rec.Embedding) != dims {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				domain.ErrInvalidInput, rec.Fingerprint.Short(), len(rec.Embedding), dims)
		}
		if err := binary.Write(&buf, binary.LittleEndian, rec.Embedding); err != nil {
			return nil, fmt.Errorf("writing vector row: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// decodeVectors parses a vectors.bin payload into its rows.
func decodeVectors(data []byte) (int, [][]float32, error) {
	if len(data) < headerSize || string(data[:4]) != vectorMagic {
		return 0, nil, fmt.Errorf("%w: %s has no valid header", domain.ErrIndexCorrupt, vectorsFile)
	}

	var header [3]uint32
	if err := binary.Read(bytes.NewReader(data[4:headerSize]), binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("%w: reading header: %w", domain.ErrIndexCorrupt, err)
	}
	version, dims, count := header[0], int(header[1]), int(header[2])
	if version != formatVersion {
		return 0, nil, fmt.Errorf("%w: unsupported vector format version %d", domain.ErrIndexCorrupt, version)
	}
	if want := headerSize + 4*dims*count; len(data) != want {
		return 0, nil, fmt.Errorf("%w: %s is %d bytes, expected %d",
			domain.ErrIndexCorrupt, vectorsFile, len(data), want)
	}

	flat := make([]float32, dims*count)
	if err := binary.Read(bytes.NewReader(data[headerSize:]), binary.LittleEndian, flat); err != nil {
		return 0, nil, fmt.Errorf("%w: reading rows: %w", domain.ErrIndexCorrupt, err)
	}
	rows := make([][]float32, count)
	for n := range rows {
		rows[n] = flat[n*dims : (n+1)*dims : (n+1)*dims]
	}
	return dims, rows, nil
}

// encodeIndex produces the three files of a namespace.
func encodeIndex(idx *Index) (map[string][]byte, error) {
	recs := idx.Records()
	vectors, err := encodeVectors(idx.Dimensions(), recs)
	if err != nil {
		return nil, err
	}

	entries := make([]recordEntry, len(recs))
	for n, rec := range recs {
		entries[n] = recordEntry{Fingerprint: rec.Fingerprint, Text: rec.Text, Metadata: rec.Metadata}
	}
	records, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshalling records: %w", err)
	}

	meta, err := json.MarshalIndent(metaEntry{SchemaVersion: formatVersion, IndexMetadata: idx.Metadata()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}

	return map[string][]byte{
		vectorsFile: vectors,
		recordsFile: records,
		metaFile:    meta,
	}, nil
}

// decodeIndex rebuilds an index from the three files of a namespace.
func decodeIndex(namespace string, vectors, records, meta []byte) (*Index, error) {
	dims, rows, err := decodeVectors(vectors)
	if err != nil {
		return nil, err
	}

	var entries []recordEntry
	if err := json.Unmarshal(records, &entries); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrIndexCorrupt, recordsFile, err)
	}
	if len(entries) != len(rows) {
		return nil, fmt.Errorf("%w: %d records but %d vectors", domain.ErrIndexCorrupt, len(entries), len(rows))
	}

	var m metaEntry
	if err := json.Unmarshal(meta, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrIndexCorrupt, metaFile, err)
	}
	if m.SchemaVersion != formatVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", domain.ErrIndexCorrupt, m.SchemaVersion)
	}

	idx := NewIndex(namespace, dims)
	for n, entry := range entries {
		inserted, err := idx.Insert(domain.IndexRecord{
			Fingerprint: entry.Fingerprint,
			Embedding:   rows[n],
			Text:        entry.Text,
			Metadata:    entry.Metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", domain.ErrIndexCorrupt, n, err)
		}
		if !inserted {
			return nil, fmt.Errorf("%w: duplicate fingerprint %s", domain.ErrIndexCorrupt, entry.Fingerprint.Short())
		}
	}
	idx.SetMetadata(m.IndexMetadata)
	return idx, nil
}
