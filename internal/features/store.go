package features

import (
	"time"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
)

const setName = "user_features"

// Store is the feature store (C2), wired directly to the KV adapter's
// wrapped-bin convention per the resolved Open Question in SPEC_FULL.md §9:
// all writes use the wrapped "data" bin, while reads fall back to decoding
// legacy direct-bin records for migration compatibility.
type Store struct {
	kv     kvstore.Client
	clock  func() time.Time
	logger logging.Logger
}

// NewStore builds a feature Store over a KV client.
func NewStore(kv kvstore.Client, logger logging.Logger) *Store {
	return &Store{kv: kv, clock: time.Now, logger: logger}
}

func recordKey(userID string, family Family) string {
	return userID + "_" + string(family)
}

// Ingest upserts a partial feature map into (family, userID), merging with
// whatever is already stored per §4.2: read existing, strip metadata,
// scalar-override merge, re-stamp timestamp/feature_type, write back.
func (s *Store) Ingest(userID string, family Family, partial map[string]any) error {
	if !IsValidFamily(string(family)) {
		return errors.Errorf("features: unknown family %q", family)
	}

	existing, err := s.readRaw(userID, family)
	if err != nil {
		return err
	}

	merged := make(map[string]any, len(existing)+len(partial))
	for k, v := range existing {
		if reservedMetaKeys[k] {
			continue
		}
		merged[k] = v
	}
	for k, v := range partial {
		if reservedMetaKeys[k] {
			continue
		}
		merged[k] = v
	}

	merged[metaTimestamp] = s.clock().UTC().Format(time.RFC3339)
	merged[metaFeatureType] = string(family)

	ok, err := kvstore.PutWrapped(s.kv, setName, recordKey(userID, family), merged)
	if err != nil {
		return errors.Wrapf(err, "features: ingest %s/%s", userID, family)
	}
	if !ok {
		s.logger.Warn("features: ingest write rejected by store", "user_id", userID, "family", family)
	}
	return nil
}

// readRaw reads a single family record, decoding either the wrapped or
// legacy direct-bin form.
func (s *Store) readRaw(userID string, family Family) (map[string]any, error) {
	var wrapped map[string]any
	ok, err := kvstore.GetWrapped(s.kv, setName, recordKey(userID, family), &wrapped)
	if err != nil {
		return nil, errors.Wrapf(err, "features: read %s/%s", userID, family)
	}
	if ok {
		return wrapped, nil
	}

	// Legacy direct-bins fallback: the bins themselves are the feature map.
	bins, found, err := s.kv.Get(setName, recordKey(userID, family))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return bins, nil
}

// RetrieveAll reads all six families for userID in fixed order and merges
// them flatly into one map, per §4.2. Returns the max timestamp seen across
// families as the freshness marker; missing families contribute nothing.
func (s *Store) RetrieveAll(userID string) (merged map[string]any, freshness string, err error) {
	merged = make(map[string]any)
	var latest time.Time
	var seenAny bool

	for _, family := range Families {
		raw, err := s.readRaw(userID, family)
		if err != nil {
			return nil, "", err
		}
		if raw == nil {
			continue
		}
		seenAny = true
		for k, v := range raw {
			if reservedMetaKeys[k] {
				continue
			}
			merged[k] = v
		}
		if ts, ok := raw[metaTimestamp].(string); ok {
			if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil && parsed.After(latest) {
				latest = parsed
			}
		}
	}

	if !seenAny {
		return map[string]any{}, "", nil
	}
	if !latest.IsZero() {
		freshness = latest.UTC().Format(time.RFC3339)
	}
	return merged, freshness, nil
}

// Exists reports whether any feature family has been ingested for userID.
func (s *Store) Exists(userID string) (bool, error) {
	merged, _, err := s.RetrieveAll(userID)
	if err != nil {
		return false, err
	}
	return len(merged) > 0, nil
}
