package license

import (
	"fmt"
	"sort"
	"strings"
)

// Features gated by the license.
const (
	FeatureEmbeddedCode    = "embedded_code"
	FeatureReports         = "reports"
	FeaturePermissionAudit = "permission_audit"
)

// Features maps each feature to the lowest tier that enables it.
type Features map[string]Tier

// DefaultFeatures returns the feature table used when the config file
// doesn't override it.
func DefaultFeatures() Features {
	return Features{
		FeatureEmbeddedCode:    Trial,
		FeatureReports:         Trial,
		FeaturePermissionAudit: Commercial,
	}
}

// ParseFeatures builds a feature table from feature name to tier name, as
// found in the config file.
func ParseFeatures(raw map[string]string) (Features, error) {
	features := Features{}
	var errs []string
	for feature, tierName := range raw {
		if strings.TrimSpace(feature) == "" {
			errs = append(errs, "empty feature name")
			continue
		}

		tier, err := ParseTier(tierName)
		if err != nil {
			errs = append(errs, fmt.Sprintf("feature %q: %s", feature, err))
			continue
		}
		if tier == None {
			errs = append(errs, fmt.Sprintf("feature %q: required tier cannot be none", feature))
			continue
		}
		features[feature] = tier
	}

	if len(errs) != 0 {
		sort.Strings(errs)
		return nil, fmt.Errorf("invalid features: %s", strings.Join(errs, "; "))
	}
	return features, nil
}

// Required returns the tier that enables the given feature.
func (f Features) Required(feature string) (Tier, bool) {
	tier, ok := f[feature]
	return tier, ok
}
