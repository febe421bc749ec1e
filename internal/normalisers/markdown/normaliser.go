package markdown

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/core/ports/driven"
	"github.com/custodia-labs/docportal/internal/normalisers/internal/textdoc"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
// Content is rendered to plain text from the goldmark AST; code blocks
// and table cells are kept, markup and raw HTML are dropped.
type Normaliser struct {
	md goldmark.Markdown
}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{
		md: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a markdown document to plain text.
// The title is the first level-one heading, falling back to the filename.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := raw.Content
	root := n.md.Parser().Parse(text.NewReader(source))

	r := &plainRenderer{source: source}
	if err := ast.Walk(root, r.walk); err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Document: textdoc.New(raw, r.title, r.String(), "markdown"),
	}, nil
}

// plainRenderer accumulates the text of block nodes separated by blank lines.
type plainRenderer struct {
	source []byte
	out    strings.Builder
	block  bytes.Buffer
	title  string
}

func (r *plainRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if !entering {
			if node.Level == 1 && r.title == "" {
				r.title = strings.TrimSpace(r.block.String())
			}
			r.flush()
		}
	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			r.flush()
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				r.block.Write(seg.Value(r.source))
			}
			r.flush()
		}
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock, *ast.RawHTML:
		return ast.WalkSkipChildren, nil
	case *ast.Text:
		if entering {
			r.block.Write(node.Segment.Value(r.source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				r.block.WriteByte('\n')
			}
		}
	case *ast.String:
		if entering {
			r.block.Write(node.Value)
		}
	case *ast.AutoLink:
		if entering {
			r.block.Write(node.Label(r.source))
		}
		return ast.WalkSkipChildren, nil
	case *ast.Image:
		return ast.WalkSkipChildren, nil
	case *extast.TableCell:
		if !entering {
			r.block.WriteByte('\t')
		}
	case *extast.TableHeader, *extast.TableRow:
		if !entering {
			r.block.Truncate(len(bytes.TrimRight(r.block.Bytes(), "\t")))
			r.block.WriteByte('\n')
		}
	case *extast.Table:
		if !entering {
			r.flush()
		}
	}
	return ast.WalkContinue, nil
}

// flush moves the pending block into the output.
func (r *plainRenderer) flush() {
	block := strings.TrimSpace(r.block.String())
	r.block.Reset()
	if block == "" {
		return
	}
	if r.out.Len() > 0 {
		r.out.WriteString("\n\n")
	}
	r.out.WriteString(block)
}

func (r *plainRenderer) String() string {
	r.flush()
	return r.out.String()
}
