// Package pdf extracts page text from PDF documents.
//
// pdfcpu reads and validates the file and yields each page's content
// stream. Font encodings and ToUnicode CMaps are applied through
// github.com/ledongthuc/pdf, so text shown in Type0 (Identity-H) fonts
// decodes to the characters, not the glyph ids.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	pdftext "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/normalisers/internal/textdoc"
)

// MIMEType is the PDF media type.
const MIMEType = "application/pdf"

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	model.ConfigPath = "disable"
}

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct {
	conf *model.Configuration
}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{conf: model.NewDefaultConfiguration()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise extracts the text of every page.
// Each page with text is introduced by a "--- Page N ---" header; pages
// without text are skipped. Encrypted or unreadable files fail with
// domain.ErrExtraction.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages, err := n.extractPages(ctx, raw.Content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, raw.URI, err)
	}

	doc := textdoc.New(raw, "", joinPages(pages), "pdf")
	doc.Metadata["page_count"] = len(pages)

	return &driven.NormaliseResult{Document: doc}, nil
}

// extractPages returns the text of each page, in page order.
func (n *Normaliser) extractPages(ctx context.Context, data []byte) ([]string, error) {
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), n.conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if pdfCtx.Encrypt != nil {
		return nil, fmt.Errorf("document is encrypted")
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("validate pdf: %w", err)
	}

	fonts := pageFonts(data, pdfCtx.PageCount)
	pages := make([]string, pdfCtx.PageCount)
	for i := 1; i <= pdfCtx.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages[i-1] = contentText(content, fonts[i-1])
	}
	return pages, nil
}

// pageFonts returns the font decoders of each page keyed by resource name.
// Pages whose fonts cannot be read get none and fall back to PDFDocEncoding.
func pageFonts(data []byte, pageCount int) (fonts []map[string]textDecoder) {
	fonts = make([]map[string]textDecoder, pageCount)
	// The reader panics on some malformed objects; keep the pages read so far.
	defer func() { _ = recover() }()

	r, err := pdftext.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fonts
	}
	for i := range min(pageCount, r.NumPage()) {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		decoders := make(map[string]textDecoder)
		for _, name := range page.Fonts() {
			decoders[name] = page.Font(name).Encoder()
		}
		fonts[i] = decoders
	}
	return fonts
}

// joinPages joins non-empty pages under 1-based page headers.
func joinPages(pages []string) string {
	var b strings.Builder
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("--- Page ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" ---\n")
		b.WriteString(text)
	}
	return b.String()
}
