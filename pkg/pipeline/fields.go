package pipeline

import "strings"

// FieldMask is a bit-set over the four enrichment fields of a ticket.
// It is a pure value type: the only operations that matter for scheduling
// decisions are equality, containment and disjointness.
type FieldMask uint8

const (
	// FieldLanguage marks the language annotation.
	FieldLanguage FieldMask = 1 << iota

	// FieldSentiment marks the sentiment annotation.
	FieldSentiment

	// FieldCategory marks the category annotation.
	FieldCategory

	// FieldPriority marks the derived priority annotation.
	FieldPriority
)

// NoFields is the empty mask.
const NoFields FieldMask = 0

// AllFields is the mask with every enrichment field set. A ticket whose
// completed mask equals AllFields has converged.
const AllFields = FieldLanguage | FieldSentiment | FieldCategory | FieldPriority

// Contains reports whether every field in other is also set in m.
// An empty other is contained in every mask.
func (m FieldMask) Contains(other FieldMask) bool {
	return m&other == other
}

// Intersects reports whether m and other share at least one field.
func (m FieldMask) Intersects(other FieldMask) bool {
	return m&other != 0
}

// Union returns the mask with every field set in either m or other.
func (m FieldMask) Union(other FieldMask) FieldMask {
	return m | other
}

// Intersection returns the mask with the fields set in both m and other.
func (m FieldMask) Intersection(other FieldMask) FieldMask {
	return m & other
}

// Empty reports whether no field is set.
func (m FieldMask) Empty() bool {
	return m == NoFields
}

// String renders the mask for log output, e.g. "language|sentiment".
func (m FieldMask) String() string {
	if m.Empty() {
		return "none"
	}
	names := make([]string, 0, 4)
	if m.Intersects(FieldLanguage) {
		names = append(names, "language")
	}
	if m.Intersects(FieldSentiment) {
		names = append(names, "sentiment")
	}
	if m.Intersects(FieldCategory) {
		names = append(names, "category")
	}
	if m.Intersects(FieldPriority) {
		names = append(names, "priority")
	}
	return strings.Join(names, "|")
}
