package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/pdfqa/internal/model"
)

// Markdown strips markup with goldmark and keeps the readable text. Form
// feeds separate pages like in plain text files.
type Markdown struct{}

func (m *Markdown) Extract(ctx context.Context, data []byte) ([]model.Page, error) {
	md := goldmark.New()
	raw := bytes.Split(data, []byte("\f"))
	pages := make([]model.Page, 0, len(raw))
	for i, src := range raw {
		doc := md.Parser().Parse(text.NewReader(src))
		pages = append(pages, model.Page{PageNum: i + 1, Text: plainText(doc, src)})
	}
	return pages, nil
}

func plainText(doc ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.AutoLink:
			sb.Write(node.Label(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
