package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Chunk is one token window of a page. It doubles as the metadata row stored
// next to the chunk's vector; Position is the row's offset in the index and is
// assigned by the index store on append.
type Chunk struct {
	DocID      string `json:"doc_id"`
	ChunkID    string `json:"chunk_id"`
	PageNum    int    `json:"page_num"`
	StartToken int    `json:"start_token"`
	EndToken   int    `json:"end_token"`
	Text       string `json:"text"`
	Position   int    `json:"position"`
}

func BuildChunkID(pageNum, local int) string {
	return strconv.Itoa(pageNum) + "_" + strconv.Itoa(local)
}

func ParseChunkID(id string) (int, int, error) {
	page, local, ok := strings.Cut(id, "_")
	if !ok {
		return 0, 0, fmt.Errorf("malformed chunk id %q", id)
	}
	p, err := strconv.Atoi(page)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed chunk id %q: %w", id, err)
	}
	l, err := strconv.Atoi(local)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed chunk id %q: %w", id, err)
	}
	if p < 1 || l < 0 || BuildChunkID(p, l) != id {
		return 0, 0, fmt.Errorf("malformed chunk id %q", id)
	}
	return p, l, nil
}

// Validate checks the page and token span of a chunk and that its id names
// the same page.
func (c Chunk) Validate() error {
	if c.PageNum < 1 {
		return fmt.Errorf("page_num %d must be positive", c.PageNum)
	}
	if c.StartToken < 0 || c.EndToken < c.StartToken {
		return fmt.Errorf("token span [%d,%d) is invalid", c.StartToken, c.EndToken)
	}
	page, _, err := ParseChunkID(c.ChunkID)
	if err != nil {
		return err
	}
	if page != c.PageNum {
		return fmt.Errorf("chunk id %q does not match page %d", c.ChunkID, c.PageNum)
	}
	return nil
}
