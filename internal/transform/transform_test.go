package transform

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/config"
	dmodel "docgate/internal/model"
	"docgate/internal/storage"
	"docgate/internal/testutil"
)

func newWorkspace(t *testing.T) storage.Workspace {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	store, err := storage.NewLocal(config.ScratchConfig{Dir: t.TempDir()}, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ws, err := store.Acquire(context.Background(), "test")
	require.NoError(t, err)
	return ws
}

func saveInput(t *testing.T, ws storage.Workspace, name string, data []byte) Input {
	t.Helper()
	path, _, err := ws.Save("input_"+name, bytes.NewReader(data))
	require.NoError(t, err)
	u := dmodel.Upload{Filename: name}
	return Input{Path: path, Name: u.Name(), Stem: u.Stem()}
}

func readOutput(t *testing.T, res *dmodel.Result) []byte {
	t.Helper()
	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(b)), res.Size)
	return b
}

var threePages = []string{"alpha page one", "bravo page two", "charlie page three"}

func TestCompress(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "report.pdf", testutil.PDF(t, threePages...))

	res, err := Compress().Apply(context.Background(), ws, in, dmodel.Params{})
	require.NoError(t, err)

	assert.Equal(t, "Optimized_report.pdf", res.DownloadName)
	assert.Equal(t, mimePDF, res.ContentType)
	out := readOutput(t, res)
	assert.Equal(t, 3, testutil.PageCount(t, out))
	assert.Equal(t, testutil.Text(t, testutil.PDF(t, threePages...)), testutil.Text(t, out))
	assert.Equal(t, strings.Join(threePages, "\n\n"), testutil.Text(t, out))
}

func TestCompress_NotAPDF(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "junk.pdf", []byte("not a pdf"))

	_, err := Compress().Apply(context.Background(), ws, in, dmodel.Params{})
	require.Error(t, err)
	assert.Equal(t, Internal, KindOf(err))
}

func TestEncryptDecrypt(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "secret.pdf", testutil.PDF(t, threePages...))

	locked, err := Encrypt().Apply(context.Background(), ws, in, dmodel.Params{Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "Locked_secret.pdf", locked.DownloadName)

	lockedIn := Input{Path: locked.Path, Name: in.Name, Stem: in.Stem}

	t.Run("right password", func(t *testing.T) {
		res, err := Decrypt().Apply(context.Background(), ws, lockedIn, dmodel.Params{Password: "s3cret"})
		require.NoError(t, err)
		assert.Equal(t, "Unlocked_secret.pdf", res.DownloadName)
		assert.Equal(t, 3, testutil.PageCount(t, readOutput(t, res)))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := Decrypt().Apply(context.Background(), ws, lockedIn, dmodel.Params{Password: "nope"})
		require.Error(t, err)
		assert.True(t, IsAuth(err))
		assert.ErrorIs(t, err, ErrIncorrectPassword)
	})
}

func TestIsPasswordError(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "pinned.pdf", testutil.PDF(t, "one"))

	locked, err := Encrypt().Apply(context.Background(), ws, in, dmodel.Params{Password: "right"})
	require.NoError(t, err)

	conf := newConf()
	conf.UserPW = "wrong"
	conf.OwnerPW = "wrong"
	err = api.DecryptFile(locked.Path, ws.Path("pinned_out.pdf"), conf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), pdfcpu.ErrWrongPassword.Error())
	assert.Contains(t, err.Error(), "please provide the correct password")
	assert.True(t, isPasswordError(err))

	err = api.DecryptFile(in.Path, ws.Path("plain_out.pdf"), newConf())
	require.Error(t, err)
	assert.False(t, isPasswordError(err))
}

func TestDecrypt_NotEncrypted(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "plain.pdf", testutil.PDF(t, "one", "two"))

	res, err := Decrypt().Apply(context.Background(), ws, in, dmodel.Params{Password: "any"})
	require.NoError(t, err)
	assert.Equal(t, 2, testutil.PageCount(t, readOutput(t, res)))
}

func TestWatermark(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "draft.pdf", testutil.PDF(t, threePages...))

	res, err := Watermark().Apply(context.Background(), ws, in, dmodel.Params{Text: "CONFIDENTIAL"})
	require.NoError(t, err)

	assert.Equal(t, "Watermarked_draft.pdf", res.DownloadName)
	assert.Equal(t, 3, testutil.PageCount(t, readOutput(t, res)))

	ok, err := api.HasWatermarksFile(in.Path, newConf())
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = api.HasWatermarksFile(res.Path, newConf())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPDFToTXT(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "notes.pdf", testutil.PDF(t, "hello world\nsecond line", "next page"))

	res, err := PDFToTXT().Apply(context.Background(), ws, in, dmodel.Params{})
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", res.DownloadName)
	assert.Equal(t, mimeText, res.ContentType)
	text := string(readOutput(t, res))
	assert.Contains(t, text, "hello world")
	assert.Contains(t, text, "second line")
	assert.Contains(t, text, "next page")
	assert.Less(t, strings.Index(text, "hello world"), strings.Index(text, "next page"))
}

func docxText(t *testing.T, data []byte) string {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var sb strings.Builder
	for _, it := range doc.Document.Body.Items {
		if p, ok := it.(*docx.Paragraph); ok {
			sb.WriteString(p.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func TestPDFToDOCX(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "book.pdf", testutil.PDF(t, threePages...))

	t.Run("whole document", func(t *testing.T) {
		res, err := PDFToDOCX().Apply(context.Background(), ws, in, dmodel.Params{})
		require.NoError(t, err)
		assert.Equal(t, "book.docx", res.DownloadName)
		assert.Equal(t, mimeDOCX, res.ContentType)

		text := docxText(t, readOutput(t, res))
		for _, want := range threePages {
			assert.Contains(t, text, want)
		}
	})

	t.Run("page range", func(t *testing.T) {
		ws := newWorkspace(t)
		in := saveInput(t, ws, "book.pdf", testutil.PDF(t, threePages...))

		res, err := PDFToDOCX().Apply(context.Background(), ws, in, dmodel.Params{StartPage: 2, EndPage: 2})
		require.NoError(t, err)

		text := docxText(t, readOutput(t, res))
		assert.Contains(t, text, "bravo page two")
		assert.NotContains(t, text, "alpha page one")
		assert.NotContains(t, text, "charlie page three")
	})

	t.Run("start beyond last page", func(t *testing.T) {
		_, err := PDFToDOCX().Apply(context.Background(), ws, in, dmodel.Params{StartPage: 9})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.ErrorIs(t, err, ErrInvalidPageRange)
	})
}

func TestDOCXToPDF(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "letter.docx", testutil.DOCX(t))

	res, err := DOCXToPDF().Apply(context.Background(), ws, in, dmodel.Params{})
	require.NoError(t, err)

	assert.Equal(t, "letter.pdf", res.DownloadName)
	out := readOutput(t, res)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, 1, testutil.PageCount(t, out))

	text := testutil.Text(t, out)
	assert.Contains(t, text, "Quarterly Report")
	assert.Contains(t, text, "first item")
	assert.Contains(t, text, "A1")
	assert.Contains(t, text, "B2")
}

func TestDOCXToPDF_NotADOCX(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "letter.docx", []byte("plain text"))

	_, err := DOCXToPDF().Apply(context.Background(), ws, in, dmodel.Params{})
	require.Error(t, err)
	assert.Equal(t, Internal, KindOf(err))
}

func TestApply_CanceledContext(t *testing.T) {
	ws := newWorkspace(t)
	in := saveInput(t, ws, "a.pdf", testutil.PDF(t, "x"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, c := range DefaultRegistry().caps {
		_, err := c.Apply(ctx, ws, in, dmodel.Params{Password: "p", Text: "t"})
		assert.ErrorIs(t, err, context.Canceled, c.Kind())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		cap    Capability
		params dmodel.Params
		ok     bool
	}{
		{"compress needs nothing", Compress(), dmodel.Params{}, true},
		{"encrypt without password", Encrypt(), dmodel.Params{}, false},
		{"encrypt with password", Encrypt(), dmodel.Params{Password: "x"}, true},
		{"decrypt without password", Decrypt(), dmodel.Params{}, false},
		{"watermark without text", Watermark(), dmodel.Params{}, false},
		{"watermark with text", Watermark(), dmodel.Params{Text: "DRAFT"}, true},
		{"range open ended", PDFToDOCX(), dmodel.Params{StartPage: 2}, true},
		{"range reversed", PDFToDOCX(), dmodel.Params{StartPage: 3, EndPage: 1}, false},
		{"range negative", PDFToDOCX(), dmodel.Params{StartPage: -1}, false},
		{"txt needs nothing", PDFToTXT(), dmodel.Params{}, true},
		{"docx needs nothing", DOCXToPDF(), dmodel.Params{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cap.Validate(tt.params)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}

func TestPageSelection(t *testing.T) {
	sel, err := pageSelection(0, 0, 5)
	require.NoError(t, err)
	assert.Nil(t, sel)

	sel, err = pageSelection(2, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"2-5"}, sel)

	sel, err = pageSelection(0, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-3"}, sel)

	_, err = pageSelection(6, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidPageRange)
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Len(t, reg.Kinds(), len(dmodel.Kinds()))

	for _, k := range dmodel.Kinds() {
		c, err := reg.Get(k)
		require.NoError(t, err)
		assert.Equal(t, k, c.Kind())
	}

	_, err := reg.Get("shred")
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	partial := NewRegistry(Compress(), Encrypt())
	assert.Equal(t, []dmodel.Kind{dmodel.KindCompress, dmodel.KindEncrypt}, partial.Kinds())
	_, err = partial.Get(dmodel.KindWatermark)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}
