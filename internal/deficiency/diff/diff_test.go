package diff

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"propcheck/internal/deficiency/models"
)

type item string

func (i item) ItemID() string { return string(i) }

func TestFindMissing(t *testing.T) {
	current := map[string]*models.DeficientItem{
		"di-1": {ID: "di-1", Item: "item-a"},
		"di-2": {ID: "di-2", Item: "item-b"},
	}
	expected := map[string]*models.DeficientItem{
		"item-b": {Item: "item-b"},
		"item-c": {Item: "item-c"},
	}

	t.Run("current to expected yields records to archive", func(t *testing.T) {
		assert.Equal(t, []string{"di-1"}, FindMissing(current, expected))
	})

	t.Run("expected to current yields items to create", func(t *testing.T) {
		assert.Equal(t, []string{"item-c"}, FindMissing(expected, current))
	})

	t.Run("empty target makes everything missing", func(t *testing.T) {
		assert.Equal(t, []string{"di-1", "di-2"}, FindMissing(current, map[string]*models.DeficientItem{}))
	})

	t.Run("empty source yields nothing", func(t *testing.T) {
		assert.Empty(t, FindMissing(map[string]*models.DeficientItem{}, expected))
	})

	t.Run("records without item never match", func(t *testing.T) {
		src := map[string]item{"k": ""}
		dst := map[string]item{"x": ""}
		assert.Equal(t, []string{"k"}, FindMissing(src, dst))
		assert.Empty(t, FindMatching(src, dst))
	})
}

func TestFindMatching(t *testing.T) {
	current := map[string]*models.DeficientItem{
		"di-1": {Item: "item-a"},
		"di-2": {Item: "item-b"},
		"di-3": {Item: "item-c"},
	}
	expected := map[string]*models.DeficientItem{
		"item-c": {Item: "item-c"},
		"item-a": {Item: "item-a"},
	}
	assert.Equal(t, []string{"di-1", "di-3"}, FindMatching(current, expected))
}

// Missing and matching partition the source keys for arbitrary inputs.
func TestDiffPartitionsSource(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		current := randomCollection(rng, "di")
		expected := randomCollection(rng, "item")

		missing := FindMissing(current, expected)
		matching := FindMatching(current, expected)

		seen := make(map[string]int)
		for _, k := range missing {
			seen[k]++
		}
		for _, k := range matching {
			seen[k]++
		}
		assert.Len(t, seen, len(current), "round %d: union covers every key", round)
		for k, n := range seen {
			assert.Equal(t, 1, n, "round %d: key %s must be in exactly one set", round, k)
			assert.Contains(t, current, k)
		}
	}
}

func randomCollection(rng *rand.Rand, prefix string) map[string]item {
	n := rng.Intn(8)
	out := make(map[string]item, n)
	for i := 0; i < n; i++ {
		out[fmt.Sprintf("%s-%d", prefix, i)] = item(fmt.Sprintf("item-%d", rng.Intn(6)))
	}
	return out
}
