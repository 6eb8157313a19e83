package engine

// Feature represents a database capability that may vary between engines.
type Feature int

const (
	// FeatureMultipleResultSets indicates a CALL may return several result sets.
	FeatureMultipleResultSets Feature = iota

	// FeatureWarnings indicates statement warnings can be listed with WarningsQuery.
	FeatureWarnings

	// FeatureNotices indicates the server reports warnings as asynchronous notices.
	FeatureNotices
)

// featureNames maps features to human-readable names.
var featureNames = map[Feature]string{
	FeatureMultipleResultSets: "multiple_result_sets",
	FeatureWarnings:           "warnings",
	FeatureNotices:            "notices",
}

// String returns the human-readable name of a feature.
func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return "unknown"
}
