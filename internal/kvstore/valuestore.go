package kvstore

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Embedder computes a fixed-dimension embedding for a piece of text. The
// concrete encoder is injected so the core stays independent of any
// specific embedding library choice, per the "Vector index is an interface,
// not a library" design note.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// Item is one record returned from the value-store view.
type Item struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	Score float64         `json:"score,omitempty"`
}

// ValueStore is the namespaced value-store view over a Client: APut/AGet/
// ASearch, with optional vector indexing on write (§4.1). Namespaces are
// tuples like ("products",) or ("user_recommendations",); they are joined
// with "/" to form the underlying Client set name.
type ValueStore struct {
	client   Client
	embedder Embedder
}

// NewValueStore builds a ValueStore. embedder may be nil, in which case
// APut calls that request indexing return an error and ASearch with a query
// behaves as a lexical scan.
func NewValueStore(client Client, embedder Embedder) *ValueStore {
	return &ValueStore{client: client, embedder: embedder}
}

func setNameFor(namespace []string) string {
	return strings.Join(namespace, "/")
}

const embeddingBin = "_embedding"
const valueBin = "value"

// APut writes value (JSON-encoded) under key inside namespace. If
// indexFields is non-empty, the adapter concatenates those fields from
// value (value must be a map[string]any or support JSON round-tripping into
// one) and computes an embedding over the concatenation, persisting it
// alongside the record for later ASearch queries.
func (v *ValueStore) APut(namespace []string, key string, value any, indexFields []string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "valuestore: marshal value")
	}

	bins := map[string]any{valueBin: string(raw)}

	if len(indexFields) > 0 {
		if v.embedder == nil {
			return errors.New("valuestore: indexFields requested but no embedder configured")
		}
		text, err := extractIndexText(raw, indexFields)
		if err != nil {
			return errors.Wrap(err, "valuestore: extract index text")
		}
		vec, err := v.embedder.Embed(text)
		if err != nil {
			return errors.Wrap(err, "valuestore: embed index text")
		}
		encoded, err := json.Marshal(vec)
		if err != nil {
			return errors.Wrap(err, "valuestore: marshal embedding")
		}
		bins[embeddingBin] = string(encoded)
	}

	ok, err := v.client.Put(setNameFor(namespace), key, bins)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("valuestore: put rejected by store")
	}
	return nil
}

// AGet retrieves a single record. ok=false means no such record (not an
// error).
func (v *ValueStore) AGet(namespace []string, key string) (item *Item, ok bool, err error) {
	bins, found, err := v.client.Get(setNameFor(namespace), key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	raw, ok := bins[valueBin].(string)
	if !ok {
		return nil, false, errors.New("valuestore: missing value bin")
	}
	return &Item{Key: key, Value: json.RawMessage(raw)}, true, nil
}

// ASearch performs either a lexical scan (query == "") or a k-NN cosine
// similarity search (query != "", requires an embedder) over namespace,
// returning up to limit items sorted by descending similarity. Per §4.7's
// contract, it never errors for an under-populated index — it simply
// returns whatever is available.
func (v *ValueStore) ASearch(namespace []string, query string, limit int) ([]Item, error) {
	rows, err := v.client.Scan(setNameFor(namespace), 0)
	if err != nil {
		return nil, err
	}

	if query == "" {
		out := make([]Item, 0, len(rows))
		for _, bins := range rows {
			raw, _ := bins[valueBin].(string)
			key, _ := bins["_key"].(string)
			out = append(out, Item{Key: key, Value: json.RawMessage(raw)})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return out, nil
	}

	if v.embedder == nil {
		return nil, errors.New("valuestore: query search requires an embedder")
	}
	queryVec, err := v.embedder.Embed(query)
	if err != nil {
		return nil, errors.Wrap(err, "valuestore: embed query")
	}

	scored := make([]Item, 0, len(rows))
	for _, bins := range rows {
		encoded, ok := bins[embeddingBin].(string)
		if !ok {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
			continue
		}
		raw, _ := bins[valueBin].(string)
		key, _ := bins["_key"].(string)
		scored = append(scored, Item{
			Key:   key,
			Value: json.RawMessage(raw),
			Score: cosineSimilarity(queryVec, vec),
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func extractIndexText(raw json.RawMessage, fields []string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}
	var parts []string
	for _, f := range fields {
		if v, ok := m[f]; ok {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " | "), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
