package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/normalisers/internal/textdoc"
)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the body text of a DOCX document.
// Paragraphs are separated by newlines, table cells by tabs.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: not a docx archive: %w", domain.ErrExtraction, raw.URI, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, raw.URI, err)
	}
	content, err := bodyText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, raw.URI, err)
	}

	return &driven.NormaliseResult{
		Document: textdoc.New(raw, coreTitle(reader), content, "docx"),
	}, nil
}

var errPartMissing = errors.New("part missing")

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	f, err := reader.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, errPartMissing)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// bodyText walks the document part token by token.
func bodyText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			case "tc":
				trimTrailingNewline(&out)
				out.WriteByte('\t')
			case "tr":
				trimTrailingTab(&out)
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}

	return strings.TrimSpace(out.String()), nil
}

func trimTrailingNewline(b *strings.Builder) {
	s := b.String()
	if trimmed := strings.TrimSuffix(s, "\n"); len(trimmed) != len(s) {
		b.Reset()
		b.WriteString(trimmed)
	}
}

func trimTrailingTab(b *strings.Builder) {
	s := b.String()
	if trimmed := strings.TrimSuffix(s, "\t"); len(trimmed) != len(s) {
		b.Reset()
		b.WriteString(trimmed)
	}
}

// coreTitle returns dc:title from the core properties, or "".
func coreTitle(reader *zip.Reader) string {
	data, err := readPart(reader, corePart)
	if err != nil {
		return ""
	}
	var core struct {
		Title string `xml:"title"`
	}
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
