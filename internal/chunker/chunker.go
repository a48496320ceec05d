package chunker

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/tokenizer"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 100
)

// Config controls window length and overlap, both in tokens.
type Config struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap}
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be > 0, got %d", appErr.ErrInvalid, c.ChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap must be >= 0 and < chunk_size, got overlap=%d chunk_size=%d",
			appErr.ErrInvalid, c.Overlap, c.ChunkSize)
	}
	return nil
}

func (c Config) Step() int {
	return c.ChunkSize - c.Overlap
}

type Chunker struct {
	tok tokenizer.Tokenizer
	cfg Config
}

func New(tok tokenizer.Tokenizer, cfg Config) (*Chunker, error) {
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{tok: tok, cfg: cfg}, nil
}

func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk slides a ChunkSize window over every page independently. Pages with no
// tokens are skipped. Output is ordered by page, then by window.
func (c *Chunker) Chunk(ctx context.Context, docID string, pages []model.Page) []model.Chunk {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))
	step := c.cfg.Step()
	tok := tokenizer.Scoped(c.tok)
	var chunks []model.Chunk
	for _, p := range pages {
		tokens := tok.Encode(p.Text)
		if len(tokens) == 0 {
			logger.Debug("skip empty page", zap.Int("page", p.PageNum))
			continue
		}
		local := 0
		for start := 0; start < len(tokens); start += step {
			end := start + c.cfg.ChunkSize
			if end > len(tokens) {
				end = len(tokens)
			}
			chunks = append(chunks, model.Chunk{
				DocID:      docID,
				ChunkID:    model.BuildChunkID(p.PageNum, local),
				PageNum:    p.PageNum,
				StartToken: start,
				EndToken:   end,
				Text:       tok.Decode(tokens[start:end]),
			})
			local++
			if end == len(tokens) {
				break
			}
		}
	}
	logger.Info("chunking completed",
		zap.Int("pages", len(pages)),
		zap.Int("total_chunks", len(chunks)),
		zap.String("tokenizer", c.tok.Name()),
	)
	return chunks
}
