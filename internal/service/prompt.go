package service

import (
	"fmt"
	"strings"

	"github.com/xxxsen/pdfqa/internal/model"
)

const answerInstruction = "You are an assistant that answers questions using ONLY the provided context. " +
	"If the answer is not in the context, say 'I don't know' and do not guess. " +
	"Always cite the source pages at the end using [page X]."

// BuildContext renders hits in order as "[page N] text" blocks separated by a
// blank line.
func BuildContext(hits []model.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("[page %d] %s", h.PageNum, h.Text))
	}
	return strings.Join(parts, "\n\n")
}

func BuildPrompt(question string, hits []model.Hit) string {
	return fmt.Sprintf("%s\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:", answerInstruction, BuildContext(hits), question)
}

func BuildSources(hits []model.Hit) []model.Source {
	sources := make([]model.Source, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, model.Source{Page: h.PageNum, ChunkID: h.ChunkID, Score: h.Score})
	}
	return sources
}
