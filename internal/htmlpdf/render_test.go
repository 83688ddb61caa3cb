package htmlpdf

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderToFile(t *testing.T, doc string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(context.Background(), doc, &buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output is not a PDF")

	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestRender(t *testing.T) {
	body := `<h1>Report</h1>
<p>Plain <strong>bold</strong> <em>italic</em> <u>under</u> and a <a href="https://example.com">link</a>.</p>
<ul><li>one</li><li>two<ul><li>nested</li></ul></li></ul>
<ol><li>first</li><li>second</li></ol>
<table><tr><td><p>a</p></td><td><p>b</p></td></tr><tr><td>c</td><td>d</td></tr></table>
<p>line<br>break &amp; entity café</p><hr>`

	path := renderToFile(t, Shell(body))
	n, err := api.PageCountFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRender_Paginates(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit.</p>")
	}
	path := renderToFile(t, Shell(b.String()))

	n, err := api.PageCountFile(path)
	require.NoError(t, err)
	assert.Greater(t, n, 1)
}

func TestRender_EmptyBody(t *testing.T) {
	path := renderToFile(t, Shell(""))
	n, err := api.PageCountFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Render(ctx, Shell("<p>x</p>"), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseSetup(t *testing.T) {
	tests := []struct {
		name string
		css  string
		want PageSetup
	}{
		{"shell", ShellCSS, DefaultSetup},
		{"empty", "", DefaultSetup},
		{
			"letter in inches with serif",
			`@page { size: letter; margin: 0.5in } body { font-family: "Times New Roman", serif; font-size: 10pt }`,
			PageSetup{Size: "Letter", MarginMM: 12.7, FontFamily: "Times", FontSizePt: 10},
		},
		{
			"monospace millimetres",
			`@page { margin: 15mm } body { font-family: monospace }`,
			PageSetup{Size: "A4", MarginMM: 15, FontFamily: "Courier", FontSizePt: 12},
		},
		{
			"unknown size kept default",
			`@page { size: B9 }`,
			DefaultSetup,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSetup(tt.css)
			assert.Equal(t, tt.want.Size, got.Size)
			assert.InDelta(t, tt.want.MarginMM, got.MarginMM, 0.001)
			assert.Equal(t, tt.want.FontFamily, got.FontFamily)
			assert.Equal(t, tt.want.FontSizePt, got.FontSizePt)
		})
	}
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, " a b ", collapseSpace("\n  a \t\n b  "))
	assert.Equal(t, "", collapseSpace(""))
}
