// Package htmlpdf renders simple HTML documents to PDF.
//
// It covers the markup produced by document converters: headings,
// paragraphs with bold/italic/underline runs, links, lists, tables, line
// breaks and rules. Page size, margin and base font are read from the
// document's <style> block; anything else in the CSS is ignored.
package htmlpdf

import (
	"regexp"
	"strconv"
	"strings"
)

// ShellCSS is the fixed page style wrapped around converted documents.
const ShellCSS = `@page { size: A4; margin: 1cm; } body { font-family: Helvetica; font-size: 12pt; }`

// Shell wraps body markup into a complete HTML document using ShellCSS.
func Shell(body string) string {
	return `<!DOCTYPE html><html><head><meta charset="utf-8"><style>` + ShellCSS +
		`</style></head><body>` + body + `</body></html>`
}

// PageSetup is the subset of CSS the renderer honours.
type PageSetup struct {
	Size       string  // fpdf page size name: A3, A4, A5, Letter, Legal
	MarginMM   float64 // margin on all four sides
	FontFamily string  // one of the PDF core fonts
	FontSizePt float64
}

// DefaultSetup matches ShellCSS.
var DefaultSetup = PageSetup{Size: "A4", MarginMM: 10, FontFamily: "Helvetica", FontSizePt: 12}

var (
	reSize   = regexp.MustCompile(`(?i)@page\s*\{[^}]*size\s*:\s*([a-z0-9]+)`)
	reMargin = regexp.MustCompile(`(?i)@page\s*\{[^}]*margin\s*:\s*([0-9.]+)\s*(cm|mm|in|pt)`)
	reFamily = regexp.MustCompile(`(?i)body\s*\{[^}]*font-family\s*:\s*["']?([a-z -]+)`)
	reFont   = regexp.MustCompile(`(?i)body\s*\{[^}]*font-size\s*:\s*([0-9.]+)\s*pt`)
)

// ParseSetup extracts page setup from CSS, keeping defaults for anything missing.
func ParseSetup(css string) PageSetup {
	s := DefaultSetup
	if m := reSize.FindStringSubmatch(css); m != nil {
		switch strings.ToLower(m[1]) {
		case "a3":
			s.Size = "A3"
		case "a4":
			s.Size = "A4"
		case "a5":
			s.Size = "A5"
		case "letter":
			s.Size = "Letter"
		case "legal":
			s.Size = "Legal"
		}
	}
	if m := reMargin.FindStringSubmatch(css); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.MarginMM = toMM(v, strings.ToLower(m[2]))
		}
	}
	if m := reFamily.FindStringSubmatch(css); m != nil {
		s.FontFamily = coreFont(m[1])
	}
	if m := reFont.FindStringSubmatch(css); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			s.FontSizePt = v
		}
	}
	return s
}

func toMM(v float64, unit string) float64 {
	switch unit {
	case "cm":
		return v * 10
	case "in":
		return v * 25.4
	case "pt":
		return v * 25.4 / 72
	}
	return v
}

func coreFont(family string) string {
	f := strings.ToLower(strings.TrimSpace(family))
	switch {
	case strings.Contains(f, "times"), strings.Contains(f, "serif") && !strings.Contains(f, "sans"):
		return "Times"
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "Courier"
	}
	return "Helvetica"
}
