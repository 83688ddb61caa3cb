package htmlpdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
)

const ptToMM = 25.4 / 72

// ErrEmptyDocument is returned when the HTML has no <body> to render.
var ErrEmptyDocument = errors.New("html document has no body")

var headingScale = [...]float64{2.0, 1.5, 1.17, 1.0, 0.83, 0.67}

// Render lays out the HTML document doc and writes the resulting PDF to w.
// Any error reported by the PDF engine fails the render.
func Render(ctx context.Context, doc string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	body := gq.Find("body")
	if body.Length() == 0 {
		return ErrEmptyDocument
	}
	setup := ParseSetup(gq.Find("style").Text())

	pdf := fpdf.New("P", "mm", setup.Size, "")
	pdf.SetMargins(setup.MarginMM, setup.MarginMM, setup.MarginMM)
	pdf.SetAutoPageBreak(true, setup.MarginMM)
	if title := strings.TrimSpace(gq.Find("title").First().Text()); title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.SetCreator("docgate", true)
	pdf.SetFont(setup.FontFamily, "", setup.FontSizePt)
	pdf.AddPage()

	r := &renderer{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		setup: setup,
		left:  setup.MarginMM,
	}
	for n := body.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		r.block(n, 0)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

type inlineStyle struct {
	bold, italic, underline int
	href                    string
}

func (s inlineStyle) fontStyle() string {
	var b strings.Builder
	if s.bold > 0 {
		b.WriteByte('B')
	}
	if s.italic > 0 {
		b.WriteByte('I')
	}
	if s.underline > 0 {
		b.WriteByte('U')
	}
	return b.String()
}

type renderer struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	setup PageSetup
	left  float64

	sizePt      float64
	atLineStart bool
}

func (r *renderer) lineHeight() float64 {
	size := r.sizePt
	if size == 0 {
		size = r.setup.FontSizePt
	}
	return size * ptToMM * 1.25
}

func (r *renderer) block(n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			r.paragraph([]*html.Node{n}, inlineStyle{})
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(n.Data[1:])
		r.heading(n, level)
	case "p":
		r.paragraph(children(n), inlineStyle{})
	case "ul", "ol":
		r.list(n, n.Data == "ol", depth+1)
	case "table":
		r.table(n)
	case "br":
		r.pdf.Ln(r.lineHeight())
	case "hr":
		r.rule()
	case "div", "section", "article", "main", "header", "footer", "blockquote":
		if hasBlockChild(n) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				r.block(c, depth)
			}
			return
		}
		r.paragraph(children(n), inlineStyle{})
	case "style", "script", "head", "title", "meta":
	default:
		r.paragraph([]*html.Node{n}, inlineStyle{})
	}
}

func (r *renderer) heading(n *html.Node, level int) {
	size := r.setup.FontSizePt * headingScale[level-1]
	r.sizePt = size
	r.pdf.SetFont(r.setup.FontFamily, "B", size)
	r.paragraph(children(n), inlineStyle{bold: 1})
	r.sizePt = 0
	r.pdf.SetFont(r.setup.FontFamily, "", r.setup.FontSizePt)
}

// paragraph writes inline content as one wrapped block followed by spacing.
func (r *renderer) paragraph(nodes []*html.Node, st inlineStyle) {
	r.pdf.SetX(r.left)
	r.atLineStart = true
	for _, n := range nodes {
		r.inline(n, st)
	}
	r.applyStyle(inlineStyle{})
	if !r.atLineStart {
		r.pdf.Ln(r.lineHeight())
	}
	r.pdf.Ln(r.lineHeight() * 0.5)
}

func (r *renderer) inline(n *html.Node, st inlineStyle) {
	switch n.Type {
	case html.TextNode:
		text := collapseSpace(n.Data)
		if r.atLineStart {
			text = strings.TrimLeft(text, " ")
		}
		if text == "" {
			return
		}
		r.applyStyle(st)
		if st.href != "" {
			r.pdf.SetTextColor(0, 0, 128)
			r.pdf.WriteLinkString(r.lineHeight(), r.tr(text), st.href)
			r.pdf.SetTextColor(0, 0, 0)
		} else {
			r.pdf.Write(r.lineHeight(), r.tr(text))
		}
		r.atLineStart = false
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.Data {
	case "b", "strong":
		st.bold++
	case "i", "em":
		st.italic++
	case "u", "ins":
		st.underline++
	case "a":
		if href := attr(n, "href"); href != "" {
			st.href = href
			st.underline++
		}
	case "br":
		r.pdf.Ln(r.lineHeight())
		r.atLineStart = true
		return
	case "style", "script":
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.inline(c, st)
	}
}

func (r *renderer) applyStyle(st inlineStyle) {
	r.pdf.SetFont("", st.fontStyle(), 0)
}

func (r *renderer) list(n *html.Node, ordered bool, depth int) {
	const indent = 6.0
	saved := r.left
	r.left = r.setup.MarginMM + indent*float64(depth)
	r.pdf.SetLeftMargin(r.left)

	item := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "li":
			item++
			marker := "•"
			if ordered {
				marker = strconv.Itoa(item) + "."
			}
			r.listItem(c, marker, depth)
		case "ul", "ol":
			r.list(c, c.Data == "ol", depth+1)
		}
	}

	r.left = saved
	r.pdf.SetLeftMargin(saved)
	r.pdf.SetX(saved)
}

func (r *renderer) listItem(li *html.Node, marker string, depth int) {
	lh := r.lineHeight()
	r.pdf.SetX(r.left - 5)
	r.pdf.CellFormat(5, lh, r.tr(marker), "", 0, "L", false, 0, "")

	var inline []*html.Node
	var nested []*html.Node
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			nested = append(nested, c)
			continue
		}
		inline = append(inline, c)
	}

	r.atLineStart = true
	for _, c := range inline {
		r.inline(c, inlineStyle{})
	}
	r.applyStyle(inlineStyle{})
	r.pdf.Ln(lh)
	for _, c := range nested {
		r.list(c, c.Data == "ol", depth+1)
	}
}

func (r *renderer) table(n *html.Node) {
	var rows [][]string
	cols := 0
	walkRows(n, func(tr *html.Node) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, strings.TrimSpace(collapseSpace(goquery.NewDocumentFromNode(c).Text())))
			}
		}
		if len(cells) > cols {
			cols = len(cells)
		}
		rows = append(rows, cells)
	})
	if cols == 0 {
		return
	}

	pageW, pageH := r.pdf.GetPageSize()
	_, _, right, bottom := r.pdf.GetMargins()
	width := (pageW - r.left - right) / float64(cols)
	lh := r.lineHeight()
	const pad = 1.0

	for _, row := range rows {
		height := lh + 2*pad
		split := make([][][]byte, cols)
		for i := 0; i < cols; i++ {
			text := ""
			if i < len(row) {
				text = row[i]
			}
			split[i] = r.pdf.SplitLines([]byte(r.tr(text)), width-2*pad)
			if h := float64(len(split[i]))*lh + 2*pad; h > height {
				height = h
			}
		}

		y := r.pdf.GetY()
		if y+height > pageH-bottom {
			r.pdf.AddPage()
			y = r.pdf.GetY()
		}
		for i := 0; i < cols; i++ {
			x := r.left + float64(i)*width
			r.pdf.Rect(x, y, width, height, "D")
			for j, line := range split[i] {
				r.pdf.SetXY(x+pad, y+pad+float64(j)*lh)
				r.pdf.CellFormat(width-2*pad, lh, string(line), "", 0, "L", false, 0, "")
			}
		}
		r.pdf.SetXY(r.left, y+height)
	}
	r.pdf.Ln(lh * 0.5)
}

func (r *renderer) rule() {
	pageW, _ := r.pdf.GetPageSize()
	_, _, right, _ := r.pdf.GetMargins()
	y := r.pdf.GetY() + 1
	r.pdf.Line(r.left, y, pageW-right, y)
	r.pdf.SetXY(r.left, y+2)
}

func walkRows(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			fn(c)
		case "thead", "tbody", "tfoot":
			walkRows(c, fn)
		}
	}
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "table", "hr", "section", "blockquote":
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\n', '\r', '\t', '\f':
			if !space {
				b.WriteByte(' ')
				space = true
			}
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}
