package domain

// SourceGroup controls when a source runs inside a poll cycle.
// Fallback sources are skipped when the preferred group produced candidates.
type SourceGroup string

const (
	GroupPreferred SourceGroup = "preferred"
	GroupFallback  SourceGroup = "fallback"
)

// String returns the string representation of SourceGroup.
func (g SourceGroup) String() string {
	return string(g)
}

// IsValid checks if the group is a valid value.
func (g SourceGroup) IsValid() bool {
	return g == GroupPreferred || g == GroupFallback
}
