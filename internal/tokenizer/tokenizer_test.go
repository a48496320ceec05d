package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhitespaceRoundTrip(t *testing.T) {
	tk := NewWhitespace()
	ids := tk.Encode("  the quick\tbrown\n fox  the ")
	require.Equal(t, []int{0, 1, 2, 3, 0}, ids)
	require.Equal(t, "the quick brown fox the", tk.Decode(ids))
	require.Equal(t, "quick fox", tk.Decode([]int{1, 3}))
}

func TestWhitespaceEmptyAndUnknown(t *testing.T) {
	tk := NewWhitespace()
	require.Empty(t, tk.Encode(" \n\t "))
	require.Equal(t, "", tk.Decode([]int{7, -1}))
}

func TestWhitespaceDeterministicAcrossCalls(t *testing.T) {
	tk := NewWhitespace()
	a := tk.Encode("alpha beta gamma")
	b := tk.Encode("gamma beta alpha")
	require.Equal(t, []int{0, 1, 2}, a)
	require.Equal(t, []int{2, 1, 0}, b)
}

func TestScopedWhitespaceLeavesParentUntouched(t *testing.T) {
	parent := NewWhitespace()
	for i := 0; i < 3; i++ {
		tk := Scoped(parent)
		require.NotSame(t, parent, tk)
		ids := tk.Encode("one two three four")
		require.Equal(t, []int{0, 1, 2, 3}, ids)
		require.Equal(t, "two three", tk.Decode(ids[1:3]))
	}
	require.Equal(t, 0, parent.vocabSize())
}

func TestScopedKeepsStatelessBackend(t *testing.T) {
	tk := &bpeTokenizer{name: "stub"}
	require.Same(t, tk, Scoped(tk))
}
