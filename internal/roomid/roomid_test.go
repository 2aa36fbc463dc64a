package roomid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := Generate()
		parts := strings.Split(id, "-")
		require.Len(t, parts, Words, id)

		seen := map[int]bool{}
		for _, p := range parts {
			idx := listOf(p)
			require.NotEqual(t, -1, idx, "word %q not in any list", p)
			assert.False(t, seen[idx], "two words from the same list in %q", id)
			seen[idx] = true
		}
	}
}

func TestGenerateUnused(t *testing.T) {
	calls := 0
	id := GenerateUnused(func(string) bool {
		calls++
		return calls < 3
	})
	assert.NotEmpty(t, id)
	assert.Equal(t, 3, calls)
}

func TestGenerateUnusedGivesUp(t *testing.T) {
	id := GenerateUnused(func(string) bool { return true })
	assert.NotEmpty(t, id)
}

func listOf(word string) int {
	for i, list := range lists {
		for _, w := range list {
			if w == word {
				return i
			}
		}
	}
	return -1
}
