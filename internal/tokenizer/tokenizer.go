// Package tokenizer converts text to token ids and back. The BPE backend is
// tiktoken; when its encoding cannot be loaded the package degrades to a
// whitespace tokenizer where every word is one token.
package tokenizer

import (
	"context"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const DefaultEncoding = "cl100k_base"

type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Name() string
}

// New returns a tiktoken tokenizer for encoding, or the whitespace fallback if
// the encoding is unavailable (unknown name, no network for the BPE file, ...).
func New(ctx context.Context, encoding string) Tokenizer {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logutil.GetLogger(ctx).Warn("tokenizer backend unavailable, using whitespace fallback",
			zap.String("encoding", encoding), zap.Error(err))
		return NewWhitespace()
	}
	return &bpeTokenizer{name: encoding, enc: enc}
}

type scoper interface {
	scoped() Tokenizer
}

// Scoped returns a tokenizer for one encode/decode session. Ids it hands out
// are only valid against the returned value. Stateless backends return tok.
func Scoped(tok Tokenizer) Tokenizer {
	if s, ok := tok.(scoper); ok {
		return s.scoped()
	}
	return tok
}

type bpeTokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

func (t *bpeTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *bpeTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

func (t *bpeTokenizer) Name() string {
	return t.name
}

// Whitespace splits on whitespace and interns each word to an id. Decoding
// joins words with a single space, so sizes are counted in words. The table
// only grows; long-lived callers should go through Scoped.
type Whitespace struct {
	mu    sync.RWMutex
	ids   map[string]int
	words []string
}

func NewWhitespace() *Whitespace {
	return &Whitespace{ids: make(map[string]int)}
}

func (w *Whitespace) Encode(text string) []int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	out := make([]int, len(fields))
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, f := range fields {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.words)
			w.ids[f] = id
			w.words = append(w.words, f)
		}
		out[i] = id
	}
	return out
}

func (w *Whitespace) Decode(tokens []int) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	parts := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id < 0 || id >= len(w.words) {
			continue
		}
		parts = append(parts, w.words[id])
	}
	return strings.Join(parts, " ")
}

func (w *Whitespace) scoped() Tokenizer {
	return NewWhitespace()
}

func (w *Whitespace) vocabSize() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.words)
}

func (w *Whitespace) Name() string {
	return "whitespace"
}
