// Package pdftext recovers readable text from PDF page content streams.
//
// It understands the text-showing and text-positioning operators well enough
// to produce linear text in drawing order. Glyphs are decoded as
// Windows-1252 (or UTF-16BE when a string carries a byte order mark); fonts
// with custom encodings or CID glyph ids come out garbled or empty.
package pdftext

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// kerning adjustments in a TJ array below this value are rendered as a space.
const spaceThreshold = -200

// Extract returns the text drawn by a decoded content stream.
func Extract(content []byte) string {
	var (
		lx     = lexer{data: content}
		w      textWriter
		stack  []token
		array  []token
		inArr  bool
		lastY  float64
		haveTm bool
	)

	for {
		tok := lx.next()
		switch tok.kind {
		case tokEOF:
			return w.String()
		case tokArrayStart:
			inArr, array = true, array[:0]
			continue
		case tokArrayEnd:
			inArr = false
			stack = append(stack, token{kind: tokArrayEnd})
			continue
		case tokKeyword:
		default:
			if inArr {
				array = append(array, tok)
			} else {
				stack = append(stack, tok)
			}
			continue
		}

		switch tok.word {
		case "BT":
			haveTm = false
		case "ET":
			w.newline()
		case "Tj":
			if s, ok := lastString(stack); ok {
				w.show(s)
			}
		case "'", "\"":
			w.newline()
			if s, ok := lastString(stack); ok {
				w.show(s)
			}
		case "TJ":
			for _, el := range array {
				switch el.kind {
				case tokString:
					w.show(el.str)
				case tokNumber:
					if el.num < spaceThreshold {
						w.space()
					}
				}
			}
			array = array[:0]
		case "T*":
			w.newline()
		case "Td", "TD":
			if nums := numbers(stack); len(nums) >= 2 && nums[len(nums)-1] != 0 {
				w.newline()
			} else if len(nums) >= 2 && nums[len(nums)-2] > 0 {
				w.space()
			}
		case "Tm":
			if nums := numbers(stack); len(nums) >= 6 {
				y := nums[len(nums)-1]
				if haveTm && y != lastY {
					w.newline()
				}
				lastY, haveTm = y, true
			}
		case "ID":
			lx.skipInlineImage()
		}
		stack = stack[:0]
	}
}

func lastString(stack []token) ([]byte, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].kind == tokString {
			return stack[i].str, true
		}
	}
	return nil, false
}

func numbers(stack []token) []float64 {
	out := make([]float64, 0, len(stack))
	for _, t := range stack {
		if t.kind == tokNumber {
			out = append(out, t.num)
		}
	}
	return out
}

// textWriter accumulates lines and never emits runs of empty lines.
type textWriter struct {
	buf bytes.Buffer
}

func (w *textWriter) show(raw []byte) {
	s := decode(raw)
	if s == "" {
		return
	}
	w.buf.WriteString(s)
}

func (w *textWriter) space() {
	if n := w.buf.Len(); n > 0 {
		last := w.buf.Bytes()[n-1]
		if last != ' ' && last != '\n' {
			w.buf.WriteByte(' ')
		}
	}
}

func (w *textWriter) newline() {
	if n := w.buf.Len(); n > 0 && w.buf.Bytes()[n-1] != '\n' {
		w.buf.WriteByte('\n')
	}
}

func (w *textWriter) String() string {
	lines := strings.Split(w.buf.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimRight(l, " \t"); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

var utf16BE = xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM)

func decode(raw []byte) string {
	var s string
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		b, err := utf16BE.NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		s = string(b)
	} else {
		b, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		s = string(b)
	}
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return ' '
		}
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
}
