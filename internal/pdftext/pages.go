package pdftext

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Page is the text recovered from one page of a document.
type Page struct {
	Number int
	Text   string
}

var contentFile = regexp.MustCompile(`_Content_page_(\d+)\.txt$`)

// ExtractPages dumps the decoded content streams of inFile into outDir and
// returns the text of each selected page in page order. A nil selection
// means every page.
func ExtractPages(inFile, outDir string, selected []string, conf *model.Configuration) ([]Page, error) {
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	if err := api.ExtractContentFile(inFile, outDir, selected, conf); err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	byPage := make(map[int]*strings.Builder)
	for _, e := range entries {
		m := contentFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		raw, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read page %d content: %w", n, err)
		}
		sb, ok := byPage[n]
		if !ok {
			sb = &strings.Builder{}
			byPage[n] = sb
		}
		if text := Extract(raw); text != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(text)
		}
	}

	pages := make([]Page, 0, len(byPage))
	for n, sb := range byPage {
		pages = append(pages, Page{Number: n, Text: sb.String()})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

// Join concatenates page texts, separating pages by a blank line.
func Join(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}
