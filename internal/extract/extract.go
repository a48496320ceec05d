package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
)

// Extractor turns a raw file into 1-based pages of plain text. Pages without
// text are kept so page numbers stay aligned with the source.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]model.Page, error)
}

var byExt = map[string]Extractor{
	".pdf":      &PDF{},
	".md":       &Markdown{},
	".markdown": &Markdown{},
	".txt":      &Text{},
}

func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if e, ok := byExt[ext]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: unsupported file type %q", appErr.ErrInvalid, ext)
}

func Supported(filename string) bool {
	_, ok := byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// HasText reports whether any page carries non-blank text.
func HasText(pages []model.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

func splitPages(text string) []model.Page {
	parts := strings.Split(text, "\f")
	pages := make([]model.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, model.Page{PageNum: i + 1, Text: strings.TrimSpace(part)})
	}
	return pages
}
