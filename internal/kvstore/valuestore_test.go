package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

// Embed returns a toy 3-dim embedding derived from text length and rune sum,
// enough to exercise cosine similarity ordering in tests without pulling in
// a real encoder.
func (fakeEmbedder) Embed(text string) ([]float32, error) {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{float32(len(text)), sum, 1}, nil
}

func TestValueStorePutGet(t *testing.T) {
	vs := NewValueStore(NewMemoryClient(), fakeEmbedder{})

	err := vs.APut([]string{"products"}, "p1", map[string]any{"name": "Phone", "description": "A phone"}, nil)
	require.NoError(t, err)

	item, ok, err := vs.AGet([]string{"products"}, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(item.Value), "Phone")
}

func TestValueStoreSearchUnderPopulatedNeverErrors(t *testing.T) {
	vs := NewValueStore(NewMemoryClient(), fakeEmbedder{})
	require.NoError(t, vs.APut([]string{"products"}, "p1", map[string]any{"embedding_text": "Phone"}, []string{"embedding_text"}))

	results, err := vs.ASearch([]string{"products"}, "phone case", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestValueStoreSearchOrdersBySimilarity(t *testing.T) {
	vs := NewValueStore(NewMemoryClient(), fakeEmbedder{})
	require.NoError(t, vs.APut([]string{"products"}, "p1", map[string]any{"embedding_text": "short"}, []string{"embedding_text"}))
	require.NoError(t, vs.APut([]string{"products"}, "p2", map[string]any{"embedding_text": "a much longer piece of text entirely"}, []string{"embedding_text"}))

	results, err := vs.ASearch([]string{"products"}, "short", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p1", results[0].Key)
}

func TestValueStoreLexicalScanWithoutQuery(t *testing.T) {
	vs := NewValueStore(NewMemoryClient(), nil)
	require.NoError(t, vs.APut([]string{"products"}, "p1", map[string]any{"name": "A"}, nil))
	require.NoError(t, vs.APut([]string{"products"}, "p2", map[string]any{"name": "B"}, nil))

	results, err := vs.ASearch([]string{"products"}, "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
