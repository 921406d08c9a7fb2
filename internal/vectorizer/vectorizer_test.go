package vectorizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorizeFixedLength(t *testing.T) {
	vec := Vectorize(map[string]any{"acc_age_days": 10.0})
	assert.Len(t, vec, NumSlots)
}

func TestVectorizeUnknownKeysIgnored(t *testing.T) {
	vec := Vectorize(map[string]any{"not_a_real_feature": 99.0})
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestVectorizeMissingProducesZero(t *testing.T) {
	vec := Vectorize(map[string]any{"acc_age_days": nil})
	assert.Zero(t, vec[slotIndex["acc_age_days"]])
}

func TestVectorizeBooleanEncoding(t *testing.T) {
	vec := Vectorize(map[string]any{"cart_no_buy": true, "bounce_flag": false})
	assert.Equal(t, 1.0, vec[slotIndex["cart_no_buy"]])
	assert.Equal(t, 0.0, vec[slotIndex["bounce_flag"]])
}

func TestVectorizeCategoricalUnknownIsZero(t *testing.T) {
	vec := Vectorize(map[string]any{"loyalty_tier": "nonexistent-tier"})
	assert.Zero(t, vec[slotIndex["loyalty_tier"]])
}

func TestVectorizeCategoricalKnownValue(t *testing.T) {
	vec := Vectorize(map[string]any{"loyalty_tier": "platinum"})
	assert.Equal(t, 4.0, vec[slotIndex["loyalty_tier"]])
}
