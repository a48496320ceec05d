package extract

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
)

// Text reads plain UTF-8; form feeds separate pages.
type Text struct{}

func (t *Text) Extract(ctx context.Context, data []byte) ([]model.Page, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text file is not valid utf-8", appErr.ErrInvalid)
	}
	return splitPages(string(data)), nil
}
