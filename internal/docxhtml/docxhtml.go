// Package docxhtml turns the body of a DOCX document into HTML markup.
//
// The mapping is structural: paragraph styles become headings, numbered
// paragraphs become list items, and run formatting becomes inline tags.
// Visual details such as fonts, colours and spacing are dropped.
package docxhtml

import (
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

// Convert parses the DOCX read from r and returns the HTML of its body.
func Convert(r io.ReaderAt, size int64) (string, error) {
	doc, err := docx.Parse(r, size)
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	c := &converter{doc: doc}
	c.items(doc.Document.Body.Items)
	return c.sb.String(), nil
}

// ConvertFile is Convert for a file on disk.
func ConvertFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	return Convert(f, st.Size())
}

type converter struct {
	doc    *docx.Docx
	sb     strings.Builder
	inList bool
}

func (c *converter) items(items []interface{}) {
	for _, it := range items {
		switch v := it.(type) {
		case *docx.Paragraph:
			c.paragraph(v)
		case *docx.Table:
			c.closeList()
			c.table(v)
		}
	}
	c.closeList()
}

func (c *converter) closeList() {
	if c.inList {
		c.sb.WriteString("</ul>")
		c.inList = false
	}
}

func (c *converter) paragraph(p *docx.Paragraph) {
	inner, ok := c.inline(p.Children)
	if !ok {
		return
	}

	tag := blockTag(p)
	if tag == "li" {
		if !c.inList {
			c.sb.WriteString("<ul>")
			c.inList = true
		}
	} else {
		c.closeList()
	}
	c.sb.WriteString("<" + tag + ">" + inner + "</" + tag + ">")
}

func (c *converter) table(t *docx.Table) {
	c.sb.WriteString("<table>")
	for _, row := range t.TableRows {
		c.sb.WriteString("<tr>")
		for _, cell := range row.TableCells {
			c.sb.WriteString("<td>")
			for _, p := range cell.Paragraphs {
				if inner, ok := c.inline(p.Children); ok {
					c.sb.WriteString("<p>" + inner + "</p>")
				}
			}
			for _, nested := range cell.Tables {
				c.table(nested)
			}
			c.sb.WriteString("</td>")
		}
		c.sb.WriteString("</tr>")
	}
	c.sb.WriteString("</table>")
}

// inline renders paragraph children. ok is false when nothing visible was found.
func (c *converter) inline(children []interface{}) (string, bool) {
	var sb strings.Builder
	visible := false
	for _, ch := range children {
		switch v := ch.(type) {
		case *docx.Run:
			s, vis := run(v, false)
			sb.WriteString(s)
			visible = visible || vis
		case *docx.Hyperlink:
			s, vis := run(&v.Run, true)
			if !vis {
				continue
			}
			visible = true
			if target, err := c.doc.ReferTarget(v.ID); err == nil && target != "" {
				sb.WriteString(`<a href="` + html.EscapeString(target) + `">` + s + "</a>")
			} else {
				sb.WriteString(s)
			}
		}
	}
	return sb.String(), visible
}

func run(r *docx.Run, link bool) (string, bool) {
	var sb strings.Builder
	visible := false
	for _, ch := range r.Children {
		switch v := ch.(type) {
		case *docx.Text:
			if v.Text != "" {
				sb.WriteString(html.EscapeString(v.Text))
				visible = visible || strings.TrimSpace(v.Text) != ""
			}
		case *docx.Tab:
			sb.WriteString("\t")
		case *docx.BarterRabbet:
			if v.Type != "page" {
				sb.WriteString("<br>")
			}
		}
	}
	if !visible && link && strings.TrimSpace(r.InstrText) != "" {
		sb.WriteString(html.EscapeString(r.InstrText))
		visible = true
	}

	out := sb.String()
	if out == "" {
		return "", false
	}
	if rp := r.RunProperties; rp != nil {
		if rp.Underline != nil && rp.Underline.Val != "none" && !link {
			out = "<u>" + out + "</u>"
		}
		if rp.Italic != nil {
			out = "<em>" + out + "</em>"
		}
		if rp.Bold != nil {
			out = "<strong>" + out + "</strong>"
		}
	}
	return out, visible
}

func blockTag(p *docx.Paragraph) string {
	props := p.Properties
	if props == nil {
		return "p"
	}
	if np := props.NumProperties; np != nil && np.NumID != nil && np.NumID.Val != "" && np.NumID.Val != "0" {
		return "li"
	}
	if props.Style == nil {
		return "p"
	}
	if level := headingLevel(props.Style.Val); level > 0 {
		return "h" + strconv.Itoa(level)
	}
	if normalizeStyle(props.Style.Val) == "listparagraph" {
		return "li"
	}
	return "p"
}

func headingLevel(style string) int {
	s := normalizeStyle(style)
	if s == "title" {
		return 1
	}
	if s == "subtitle" {
		return 2
	}
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
	if err != nil || n < 1 {
		return 0
	}
	if n > 6 {
		n = 6
	}
	return n
}

func normalizeStyle(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}
