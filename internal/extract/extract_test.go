package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
)

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.pdf", "B.PDF", "notes.md", "x.markdown", "r.txt"} {
		_, err := ForFile(name)
		require.NoError(t, err, name)
		require.True(t, Supported(name))
	}
	_, err := ForFile("sheet.xlsx")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.False(t, Supported("noext"))
}

func TestTextSplitsOnFormFeed(t *testing.T) {
	pages, err := (&Text{}).Extract(context.Background(), []byte("first page\n\f\fthird  "))
	require.NoError(t, err)
	require.Equal(t, []model.Page{
		{PageNum: 1, Text: "first page"},
		{PageNum: 2, Text: ""},
		{PageNum: 3, Text: "third"},
	}, pages)
	require.True(t, HasText(pages))
}

func TestTextRejectsBinary(t *testing.T) {
	_, err := (&Text{}).Extract(context.Background(), []byte{0xff, 0xfe, 0x00})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestMarkdownStripsMarkup(t *testing.T) {
	src := "# Title\n\nSome **bold** and `code` text.\n\n```go\nfmt.Println(1)\n```\n\fpage two <https://example.com>\n"
	pages, err := (&Markdown{}).Extract(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Contains(t, pages[0].Text, "Title")
	require.Contains(t, pages[0].Text, "Some bold and code text.")
	require.Contains(t, pages[0].Text, "fmt.Println(1)")
	require.NotContains(t, pages[0].Text, "**")
	require.NotContains(t, pages[0].Text, "#")
	require.Equal(t, 2, pages[1].PageNum)
	require.Contains(t, pages[1].Text, "https://example.com")
}

func TestPDFRejectsGarbage(t *testing.T) {
	_, err := (&PDF{}).Extract(context.Background(), []byte("not a pdf"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestHasText(t *testing.T) {
	require.False(t, HasText(nil))
	require.False(t, HasText([]model.Page{{PageNum: 1, Text: "  \n"}}))
}
