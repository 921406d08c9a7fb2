// Package features implements the feature store (C2): six feature families
// keyed by user, merge-on-write, with freshness tracked per record, plus
// the typed per-family structs used for ingest-time validation described in
// the design notes ("Dynamic feature maps → typed family structs + a
// merged view").
package features

// Family is one of the six closed-set feature family tags.
type Family string

const (
	FamilyProfile       Family = "profile"
	FamilyBehavior      Family = "behavior"
	FamilyTransactional Family = "transactional"
	FamilyEngagement    Family = "engagement"
	FamilySupport       Family = "support"
	FamilyRealtime      Family = "realtime"
)

// Families lists all six families in the fixed merge order used by
// RetrieveAll: later entries override earlier ones on name collision.
var Families = []Family{
	FamilyProfile,
	FamilyBehavior,
	FamilyTransactional,
	FamilyEngagement,
	FamilySupport,
	FamilyRealtime,
}

// IsValidFamily reports whether s names one of the six closed-set families.
func IsValidFamily(s string) bool {
	for _, f := range Families {
		if string(f) == s {
			return true
		}
	}
	return false
}

// metaTimestamp and metaFeatureType are the two reserved metadata bins
// carried alongside every family record; they are stripped before merging
// and reattached on write.
const (
	metaTimestamp   = "timestamp"
	metaFeatureType = "feature_type"
)

// reservedMetaKeys lists keys that Ingest must never treat as feature data.
var reservedMetaKeys = map[string]bool{
	metaTimestamp:   true,
	metaFeatureType: true,
	"_key":          true,
}
