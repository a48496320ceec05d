package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0B"},
		{in: 900, want: "900B"},
		{in: 1024, want: "1KB"},
		{in: 1500, want: "1500B"},
		{in: 50 << 20, want: "50MB"},
		{in: 3<<20 + 1<<19, want: "3.5MB"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, humanSize(tt.in))
	}
}

func TestFileTooLargeMessage(t *testing.T) {
	require.Equal(t, "file exceeds the 1KB upload limit", fileTooLargeMessage(1024))
}
