package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	id := BuildChunkID(12, 3)
	require.Equal(t, "12_3", id)
	page, local, err := ParseChunkID(id)
	require.NoError(t, err)
	require.Equal(t, 12, page)
	require.Equal(t, 3, local)

	for _, bad := range []string{"", "12", "a_1", "1_b", "1_-3", "0_0", "-1_2", "+1_2", "01_2"} {
		_, _, err := ParseChunkID(bad)
		require.Error(t, err, bad)
	}
}

func TestChunkValidate(t *testing.T) {
	ok := Chunk{ChunkID: "2_0", PageNum: 2, StartToken: 0, EndToken: 500}
	require.NoError(t, ok.Validate())
	empty := Chunk{ChunkID: "1_4", PageNum: 1, StartToken: 7, EndToken: 7}
	require.NoError(t, empty.Validate())

	tests := []struct {
		name  string
		chunk Chunk
	}{
		{name: "zero page", chunk: Chunk{ChunkID: "0_0", PageNum: 0, EndToken: 1}},
		{name: "negative start", chunk: Chunk{ChunkID: "1_0", PageNum: 1, StartToken: -1, EndToken: 3}},
		{name: "end before start", chunk: Chunk{ChunkID: "1_0", PageNum: 1, StartToken: 50, EndToken: -3}},
		{name: "negative local", chunk: Chunk{ChunkID: "1_-3", PageNum: 1, EndToken: 3}},
		{name: "page mismatch", chunk: Chunk{ChunkID: "3_0", PageNum: 1, EndToken: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.chunk.Validate())
		})
	}
}
