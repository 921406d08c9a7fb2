// Package vectorstore implements the Product Indexer + Vector Search
// component (C7): it encodes product records to embeddings, writes them
// into the KV store's value-store vector index, and runs k-NN similarity
// queries over them, filtering out excluded product IDs. Grounded on
// server/store/kvstore/store.go's namespaced-record pattern generalized by
// kvstore.ValueStore, with the embedding itself left as an injectable
// kvstore.Embedder per the "vector index is an interface, not a library"
// design note — no pack repo ships a 384-dim text encoder to bind to
// directly.
package vectorstore

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/kvstore"
)

var productsNamespace = []string{"products"}

// indexFields is the subset of a product's JSON fields the embedding is
// computed over, via embedding_text.
var indexFields = []string{"embedding_text"}

// Store wraps a kvstore.ValueStore to provide product-specific indexing
// and search.
type Store struct {
	values *kvstore.ValueStore
	kv     kvstore.Client
}

// New builds a Store over the given ValueStore/Client pair (the Client is
// needed directly for the readiness Count check, which isn't part of the
// ValueStore view).
func New(values *kvstore.ValueStore, kv kvstore.Client) *Store {
	return &Store{values: values, kv: kv}
}

// IndexProducts builds each product's embedding_text and writes it into
// the vector index, per §4.7.
func (s *Store) IndexProducts(products []domain.Product) error {
	for i := range products {
		p := products[i]
		p.EmbeddingText = p.BuildEmbeddingText()
		if err := s.values.APut(productsNamespace, p.ProductID, p, indexFields); err != nil {
			return errors.Wrapf(err, "vectorstore: index product %s", p.ProductID)
		}
	}
	return nil
}

// ScoredProduct pairs a product with its similarity score.
type ScoredProduct struct {
	Product domain.Product
	Score   float64
}

// SearchSimilar runs a k-NN search over the indexed products, filters
// excludeIDs, and returns up to limit items sorted by descending
// similarity. Per §4.7's contract, it never errors for an under-populated
// index — it returns whatever passes the filter.
func (s *Store) SearchSimilar(queryText string, limit int, excludeIDs []string) ([]ScoredProduct, error) {
	exclude := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = true
	}

	// Over-fetch so that filtering excluded ids still leaves up to limit
	// results when possible.
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + len(excludeIDs)
	}

	items, err := s.values.ASearch(productsNamespace, queryText, fetchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "vectorstore: search")
	}

	out := make([]ScoredProduct, 0, len(items))
	for _, item := range items {
		var p domain.Product
		if err := json.Unmarshal(item.Value, &p); err != nil {
			continue
		}
		if exclude[p.ProductID] {
			continue
		}
		out = append(out, ScoredProduct{Product: p, Score: item.Score})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Count reports how many products are currently indexed, used by the
// /recommendations/status readiness check.
func (s *Store) Count() (int, error) {
	return s.kv.Count("products")
}
