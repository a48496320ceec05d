package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
)

// PDF extracts the text layer page by page. Scanned pages come back empty.
type PDF struct{}

func (p *PDF) Extract(ctx context.Context, data []byte) (pages []model.Page, err error) {
	defer func() {
		// the pdf reader panics on some malformed xref tables
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: unreadable pdf: %v", appErr.ErrInvalid, r)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", appErr.ErrInvalid, err)
	}
	n := reader.NumPage()
	pages = make([]model.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		var content string
		if !page.V.IsNull() {
			content, err = page.GetPlainText(nil)
			if err != nil {
				logutil.GetLogger(ctx).Warn("pdf page text extraction failed", zap.Int("page", i), zap.Error(err))
				content = ""
			}
		}
		pages = append(pages, model.Page{PageNum: i, Text: strings.TrimSpace(content)})
	}
	return pages, nil
}
