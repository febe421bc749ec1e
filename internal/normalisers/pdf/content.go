package pdf

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// tjSpaceThreshold is the TJ kerning adjustment, in thousandths of an em,
// beyond which a gap is rendered as a space.
const tjSpaceThreshold = -200

// textDecoder maps the bytes of a string operand to text for one font.
type textDecoder interface {
	Decode(raw string) string
}

// contentText renders the text-showing operators of a page content stream.
// fonts holds decoders by font resource name as selected with Tf. Strings
// shown in fonts without a decoder are read as PDFDocEncoding, or UTF-16BE
// when they carry a BOM.
func contentText(content []byte, fonts map[string]textDecoder) string {
	lx := &lexer{src: content}
	var (
		out      strings.Builder
		operands []token
		font     textDecoder
	)

	newline := func() {
		s := out.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			out.WriteByte('\n')
		}
	}

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "Tf":
			font = nil
			if len(operands) > 0 && operands[0].kind == tokName {
				font = fonts[operands[0].text]
			}
		case "Tj", "TJ":
			writeStrings(&out, operands, font)
		case "'", "\"":
			newline()
			writeStrings(&out, operands, font)
		case "T*", "ET":
			newline()
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].number() != 0 {
				newline()
			} else if s := out.String(); s != "" && !strings.HasSuffix(s, "\n") && !strings.HasSuffix(s, " ") {
				out.WriteByte(' ')
			}
		case "Tm":
			newline()
		case "BI":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}

	return strings.TrimSpace(out.String())
}

// writeStrings writes string operands; numbers inside TJ arrays become
// spaces when they exceed the word gap threshold.
func writeStrings(out *strings.Builder, operands []token, font textDecoder) {
	for _, op := range operands {
		switch op.kind {
		case tokString:
			out.WriteString(decodeWith(font, op.raw))
		case tokNumber:
			if op.inArray && op.number() < tjSpaceThreshold {
				out.WriteByte(' ')
			}
		}
	}
}

// decodeWith decodes b with the font's decoder. Strings with a UTF-16 BOM
// and fonts whose decoder fails fall back to decodeString.
func decodeWith(font textDecoder, b []byte) (text string) {
	if font == nil || bytes.HasPrefix(b, []byte{0xfe, 0xff}) {
		return decodeString(b)
	}
	defer func() {
		if recover() != nil {
			text = decodeString(b)
		}
	}()
	return font.Decode(string(b))
}

func decodeString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if s, err := dec.Bytes(b); err == nil {
			return string(s)
		}
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokNumber
	tokString
	tokName
	tokOther
)

type token struct {
	kind    tokenKind
	text    string
	raw     []byte
	inArray bool
}

func (t token) number() float64 {
	f, _ := strconv.ParseFloat(t.text, 64)
	return f
}

// lexer splits a content stream into operands and operators.
// Arrays are flattened; their members are marked inArray.
type lexer struct {
	src   []byte
	pos   int
	depth int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
				l.pos++
			}
		case c == '[':
			l.depth++
			l.pos++
		case c == ']':
			if l.depth > 0 {
				l.depth--
			}
			l.pos++
		case c == '(':
			return token{kind: tokString, raw: l.literal(), inArray: l.depth > 0}, true
		case c == '<' && l.peek(1) == '<':
			l.skipDict()
			return token{kind: tokOther}, true
		case c == '<':
			return token{kind: tokString, raw: l.hex(), inArray: l.depth > 0}, true
		case c == '/':
			l.pos++
			return token{kind: tokName, text: l.word()}, true
		case c == '>' || c == ')' || c == '{' || c == '}':
			l.pos++
		default:
			w := l.word()
			if w == "" {
				l.pos++
				continue
			}
			if _, err := strconv.ParseFloat(w, 64); err == nil {
				return token{kind: tokNumber, text: w, inArray: l.depth > 0}, true
			}
			return token{kind: tokOperator, text: w}, true
		}
	}
	return token{}, false
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.src) && !isWhite(l.src[l.pos]) && !isDelim(l.src[l.pos]) {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

// literal reads a parenthesised string, honouring nesting and escapes.
func (l *lexer) literal() []byte {
	l.pos++ // (
	var out bytes.Buffer
	nesting := 1
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '(':
			nesting++
			out.WriteByte(c)
		case ')':
			nesting--
			if nesting == 0 {
				return out.Bytes()
			}
			out.WriteByte(c)
		case '\\':
			l.escape(&out)
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

func (l *lexer) escape(out *bytes.Buffer) {
	if l.pos >= len(l.src) {
		return
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		out.WriteByte('\n')
	case 'r':
		out.WriteByte('\r')
	case 't':
		out.WriteByte('\t')
	case 'b':
		out.WriteByte('\b')
	case 'f':
		out.WriteByte('\f')
	case '\r':
		if l.peek(0) == '\n' {
			l.pos++
		}
	case '\n':
	default:
		if c >= '0' && c <= '7' {
			v := int(c - '0')
			for i := 0; i < 2 && l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '7'; i++ {
				v = v*8 + int(l.src[l.pos]-'0')
				l.pos++
			}
			out.WriteByte(byte(v))
			return
		}
		out.WriteByte(c)
	}
}

// hex reads a <...> string. An odd final digit is padded with 0.
func (l *lexer) hex() []byte {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.src) && l.src[l.pos] != '>' {
		if c := l.src[l.pos]; !isWhite(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

func (l *lexer) skipDict() {
	nesting := 0
	for l.pos < len(l.src) {
		switch {
		case l.src[l.pos] == '<' && l.peek(1) == '<':
			nesting++
			l.pos += 2
		case l.src[l.pos] == '>' && l.peek(1) == '>':
			nesting--
			l.pos += 2
			if nesting == 0 {
				return
			}
		case l.src[l.pos] == '(':
			l.literal()
		default:
			l.pos++
		}
	}
}

// skipInlineImage advances past the binary data of a BI ... ID ... EI block.
func (l *lexer) skipInlineImage() {
	idx := bytes.Index(l.src[l.pos:], []byte("ID"))
	if idx < 0 {
		l.pos = len(l.src)
		return
	}
	l.pos += idx + 2
	for l.pos < len(l.src) {
		end := bytes.Index(l.src[l.pos:], []byte("EI"))
		if end < 0 {
			l.pos = len(l.src)
			return
		}
		at := l.pos + end
		before := at == 0 || isWhite(l.src[at-1])
		after := at+2 >= len(l.src) || isWhite(l.src[at+2])
		l.pos = at + 2
		if before && after {
			return
		}
	}
}
