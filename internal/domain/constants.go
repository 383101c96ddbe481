package domain

// Engine scoring and judging defaults. Centralized so configuration and
// tests adjust one place instead of scattered call sites.
const (
	// DefaultTolerance is the allowed index deviation from the exact
	// chronological insertion point that still counts as correct.
	DefaultTolerance = 1

	// ScoreCorrectPlacement is awarded for a placement within tolerance.
	ScoreCorrectPlacement = 2

	// ScoreIncorrectPlacement is awarded when a legal placement outside
	// tolerance is accepted under the lenient policy.
	ScoreIncorrectPlacement = 1
)
