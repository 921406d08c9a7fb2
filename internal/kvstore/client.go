// Package kvstore implements the typed KV store adapter (C1): a thin
// wrapper over Aerospike exposing put/get/delete/scan/query plus the two
// encoding conventions (direct bins, wrapped "data" bin) described in
// §4.1, and a namespaced value-store view with optional vector indexing
// (valuestore.go).
//
// Grounded on server/store/kvstore/store.go's concrete struct-wrapping-a-
// client shape and prefix-keyed record layout, adapted from a Mattermost
// KVStore (single string-keyed bucket) to Aerospike's set/key/bin model,
// per original_source/RecoEngine-featurestore/api-service/agent/store_helper.py.
package kvstore

import (
	"encoding/json"

	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/logging"
)

// ErrNotFound is returned by nothing directly — per §4.1, record-not-found
// is not an error. It is kept for callers that want to distinguish "no
// record" from a decode failure when wrapping Get results.
var ErrNotFound = errors.New("kvstore: record not found")

// dataBin is the reserved bin name used by the wrapped encoding convention.
const dataBin = "data"

// Client is the typed KV store adapter's surface, independent of the
// concrete driver. A fake in-memory implementation (memory.go) backs unit
// tests; AerospikeClient backs production.
type Client interface {
	// Put writes bins directly (the "direct bins" convention); each map key
	// becomes a top-level bin. Returns false (not an error) only when the
	// underlying store legitimately rejects the write.
	Put(set, key string, bins map[string]any) (bool, error)

	// Get reads a record's bins directly. ok=false means no such record,
	// which is not an error per §4.1.
	Get(set, key string) (bins map[string]any, ok bool, err error)

	// Delete removes a record. ok=false if nothing was deleted.
	Delete(set, key string) (ok bool, err error)

	// Scan returns up to limit records in a set, each annotated with a
	// synthetic "_key" field. limit<=0 means unbounded.
	Scan(set string, limit int) ([]map[string]any, error)

	// QueryByField performs a secondary-index-free linear scan filtering on
	// a single bin equality match. Used for lookups that don't go through
	// the primary key.
	QueryByField(set, field string, value any) ([]map[string]any, error)

	// Exists reports whether a record exists, without reading its bins.
	Exists(set, key string) (bool, error)

	// Count returns the number of records in a set.
	Count(set string) (int, error)
}

// PutWrapped writes value JSON-encoded into the single reserved "data" bin,
// the convention used by catalog/coupon/user/message records to avoid
// Aerospike's 15-character bin-name limit (§4.1).
func PutWrapped(c Client, set, key string, value any) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, errors.Wrap(err, "kvstore: marshal wrapped value")
	}
	return c.Put(set, key, map[string]any{dataBin: string(raw)})
}

// GetWrapped reads a wrapped record back into dst (a pointer). ok=false
// means no such record.
func GetWrapped(c Client, set, key string, dst any) (ok bool, err error) {
	bins, found, err := c.Get(set, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return decodeWrapped(bins, dst)
}

// ScanWrapped scans a set of wrapped records, decoding each into a new
// instance produced by newFn, and returns them via appendFn. Records that
// fail to decode are skipped and logged rather than aborting the scan,
// matching the "other errors are logged" failure semantics of §4.1.
func ScanWrapped[T any](c Client, set string, limit int, logger logging.Logger) ([]T, error) {
	rows, err := c.Scan(set, limit)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, bins := range rows {
		var v T
		ok, decErr := decodeWrapped(bins, &v)
		if decErr != nil {
			if logger != nil {
				logger.Warn("kvstore: skipping undecodable wrapped record", "set", set, "error", decErr.Error())
			}
			continue
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func decodeWrapped(bins map[string]any, dst any) (bool, error) {
	raw, ok := bins[dataBin]
	if !ok {
		return false, nil
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return false, errors.Errorf("kvstore: unexpected data bin type %T", raw)
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return false, errors.Wrap(err, "kvstore: unmarshal wrapped value")
	}
	return true, nil
}

// AerospikeClient is the production Client backed by a real Aerospike
// connection.
type AerospikeClient struct {
	client    *as.Client
	namespace string
	logger    logging.Logger
}

// AerospikeConfig mirrors the KVSTORE_* environment inputs.
type AerospikeConfig struct {
	Host      string
	Port      int
	Namespace string
	UseTLS    bool
	TLSCAFile string
	TLSName   string
	Username  string
	Password  string
}

// NewAerospikeClient connects to Aerospike using the policies described in
// store_helper.py (POLICY_KEY_SEND: the server stores the key alongside the
// record, enabling later Scan to recover it).
func NewAerospikeClient(cfg AerospikeConfig, logger logging.Logger) (*AerospikeClient, error) {
	policy := as.NewClientPolicy()
	policy.User = cfg.Username
	policy.Password = cfg.Password
	if cfg.UseTLS {
		tlsConfig, err := as.NewTLSConfig(cfg.TLSCAFile, "", "", cfg.TLSName, true, false, false)
		if err != nil {
			return nil, errors.Wrap(err, "kvstore: build TLS config")
		}
		policy.TlsConfig = tlsConfig
	}

	client, err := as.NewClientWithPolicyAndHost(policy, as.NewHost(cfg.Host, cfg.Port))
	if err != nil {
		return nil, errors.Wrapf(err, "kvstore: connect to aerospike at %s:%d", cfg.Host, cfg.Port)
	}

	logger.Info("kvstore: connected", "host", cfg.Host, "port", cfg.Port, "namespace", cfg.Namespace)
	return &AerospikeClient{client: client, namespace: cfg.Namespace, logger: logger}, nil
}

func (a *AerospikeClient) writePolicy() *as.WritePolicy {
	p := as.NewWritePolicy(0, 0)
	p.SendKey = true
	return p
}

func (a *AerospikeClient) Put(set, key string, bins map[string]any) (bool, error) {
	k, err := as.NewKey(a.namespace, set, key)
	if err != nil {
		return false, errors.Wrap(err, "kvstore: build key")
	}
	if err := a.client.Put(a.writePolicy(), k, as.BinMap(bins)); err != nil {
		a.logger.Error("kvstore: put failed", "set", set, "key", key, "error", err.Error())
		return false, nil
	}
	return true, nil
}

func (a *AerospikeClient) Get(set, key string) (map[string]any, bool, error) {
	k, err := as.NewKey(a.namespace, set, key)
	if err != nil {
		return nil, false, errors.Wrap(err, "kvstore: build key")
	}
	rec, err := a.client.Get(nil, k)
	if err != nil {
		if err.Matches(as.ErrKeyNotFound) {
			return nil, false, nil
		}
		a.logger.Warn("kvstore: get failed, will reconnect on next op", "set", set, "key", key, "error", err.Error())
		return nil, false, nil
	}
	if rec == nil {
		return nil, false, nil
	}
	return rec.Bins, true, nil
}

func (a *AerospikeClient) Delete(set, key string) (bool, error) {
	k, err := as.NewKey(a.namespace, set, key)
	if err != nil {
		return false, errors.Wrap(err, "kvstore: build key")
	}
	existed, err := a.client.Delete(a.writePolicy(), k)
	if err != nil {
		a.logger.Warn("kvstore: delete failed", "set", set, "key", key, "error", err.Error())
		return false, nil
	}
	return existed, nil
}

func (a *AerospikeClient) Scan(set string, limit int) ([]map[string]any, error) {
	policy := as.NewScanPolicy()
	recordset, err := a.client.ScanAll(policy, a.namespace, set)
	if err != nil {
		a.logger.Warn("kvstore: scan failed", "set", set, "error", err.Error())
		return nil, nil
	}
	defer recordset.Close()

	var out []map[string]any
	for res := range recordset.Results() {
		if res.Err != nil {
			continue
		}
		bins := map[string]any{}
		for k, v := range res.Record.Bins {
			bins[k] = v
		}
		bins["_key"] = res.Record.Key.Value().String()
		out = append(out, bins)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (a *AerospikeClient) QueryByField(set, field string, value any) ([]map[string]any, error) {
	rows, err := a.Scan(set, 0)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, bins := range rows {
		if v, ok := bins[field]; ok && equalLoose(v, value) {
			out = append(out, bins)
		}
	}
	return out, nil
}

func (a *AerospikeClient) Exists(set, key string) (bool, error) {
	k, err := as.NewKey(a.namespace, set, key)
	if err != nil {
		return false, errors.Wrap(err, "kvstore: build key")
	}
	existed, err := a.client.Exists(nil, k)
	if err != nil {
		return false, nil
	}
	return existed, nil
}

func (a *AerospikeClient) Count(set string) (int, error) {
	rows, err := a.Scan(set, 0)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Close releases the underlying Aerospike connection.
func (a *AerospikeClient) Close() {
	a.client.Close()
}

func equalLoose(a, b any) bool {
	return fmtVal(a) == fmtVal(b)
}

func fmtVal(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
