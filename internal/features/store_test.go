package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
)

func newTestStore() *Store {
	return NewStore(kvstore.NewMemoryClient(), logging.Nop{})
}

func TestIngestMergesAcrossWrites(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.Ingest("u2", FamilyBehavior, map[string]any{"sess_7d": 5.0}))
	require.NoError(t, s.Ingest("u2", FamilyBehavior, map[string]any{"sess_7d": 5.0}))
	require.NoError(t, s.Ingest("u2", FamilyBehavior, map[string]any{"cart_abandon": 0.4}))

	merged, _, err := s.RetrieveAll("u2")
	require.NoError(t, err)
	assert.Equal(t, 5.0, merged["sess_7d"])
	assert.Equal(t, 0.4, merged["cart_abandon"])
}

func TestRetrieveAllMergesAcrossFamiliesInOrder(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.Ingest("u1", FamilyProfile, map[string]any{"loyalty_tier": "bronze"}))
	require.NoError(t, s.Ingest("u1", FamilyBehavior, map[string]any{"days_last_login": 20.0}))

	merged, freshness, err := s.RetrieveAll("u1")
	require.NoError(t, err)
	assert.Equal(t, "bronze", merged["loyalty_tier"])
	assert.Equal(t, 20.0, merged["days_last_login"])
	assert.NotEmpty(t, freshness)
}

func TestRetrieveAllMissingFamilyIsNotError(t *testing.T) {
	s := newTestStore()
	merged, freshness, err := s.RetrieveAll("ghost")
	require.NoError(t, err)
	assert.Empty(t, merged)
	assert.Empty(t, freshness)
}

func TestIngestRejectsUnknownFamily(t *testing.T) {
	s := newTestStore()
	err := s.Ingest("u1", Family("bogus"), map[string]any{"x": 1.0})
	require.Error(t, err)
}

func TestRetrieveAllIsIdempotentBetweenWrites(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Ingest("u3", FamilyProfile, map[string]any{"loyalty_tier": "gold"}))

	first, _, err := s.RetrieveAll("u3")
	require.NoError(t, err)
	second, _, err := s.RetrieveAll("u3")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
