package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// buildPDF writes a minimal uncompressed PDF with one page per content stream.
func buildPDF(pages ...string) []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, content := range pages {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			stream(content),
		)
	}

	return writePDF(objects)
}

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

// writePDF numbers objects from 1 and appends the xref table and trailer.
// Object 1 must be the catalog.
func writePDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestNormaliser_Metadata(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"application/pdf"}, n.SupportedMIMETypes())
	assert.Equal(t, 60, n.Priority())
}

func TestNormalise_Pages(t *testing.T) {
	raw := &domain.RawDocument{
		SourceID: "session_1",
		URI:      "/files/contract_v2.pdf",
		MIMEType: MIMEType,
		Content: buildPDF(
			"BT /F1 12 Tf 72 712 Td (Parties and terms) Tj ET",
			"q 0 0 10 10 re f Q",
			"BT /F1 12 Tf 72 712 Td (Payment schedule) Tj ET",
		),
	}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	doc := result.Document
	assert.Equal(t, "--- Page 1 ---\nParties and terms\n\n--- Page 3 ---\nPayment schedule", doc.Content)
	assert.Equal(t, "contract v2", doc.Title)
	assert.Equal(t, 3, doc.Metadata["page_count"])
	assert.Equal(t, "pdf", doc.Metadata["format"])
}

// toUnicode maps the glyph ids used by cidPDF back to characters.
const toUnicode = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
8 beginbfchar
<0003> <0020>
<0026> <0043>
<0044> <0061>
<0049> <0066>
<004F> <006C>
<0052> <006F>
<0057> <0074>
<00A1> <00E9>
endbfchar
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

// cidPDF has one page that shows "Café total" in an Identity-H Type0 font
// with a ToUnicode CMap, then "Invoice" in Helvetica.
func cidPDF() []byte {
	content := "BT /F1 12 Tf 72 712 Td <0026 0044 0049 00A1 0003 0057 0052 0057 0044 004F> Tj " +
		"/F2 12 Tf 0 -14 Td (Invoice) Tj ET"
	return writePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 5 0 R /F2 9 0 R >> >> /Contents 4 0 R >>",
		stream(content),
		"<< /Type /Font /Subtype /Type0 /BaseFont /NotoSans /Encoding /Identity-H " +
			"/DescendantFonts [6 0 R] /ToUnicode 8 0 R >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /NotoSans " +
			"/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> " +
			"/FontDescriptor 7 0 R /DW 500 >>",
		"<< /Type /FontDescriptor /FontName /NotoSans /Flags 32 /FontBBox [0 -200 1000 800] " +
			"/ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80 >>",
		stream(toUnicode),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	})
}

func TestNormalise_CIDFontWithToUnicode(t *testing.T) {
	raw := &domain.RawDocument{URI: "/files/invoice.pdf", MIMEType: MIMEType, Content: cidPDF()}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "--- Page 1 ---\nCafé total\nInvoice", result.Document.Content)
}

func TestPageFonts_Unreadable(t *testing.T) {
	fonts := pageFonts([]byte("not a pdf"), 2)
	assert.Len(t, fonts, 2)
	assert.Nil(t, fonts[0])
}

func TestNormalise_Unreadable(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/files/broken.pdf",
		MIMEType: MIMEType,
		Content:  []byte("this is not a pdf"),
	}

	result, err := New().Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "broken.pdf")
	assert.Nil(t, result)
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Normalise(ctx, &domain.RawDocument{Content: buildPDF("BT (x) Tj ET")})
	assert.ErrorIs(t, err, context.Canceled)
}
