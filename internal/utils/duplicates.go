package utils

// HitFilter tracks surface forms already emitted to a caller so a second
// query stage (e.g. typeahead's substring top-up after a prefix pass) never
// re-emits the same word.
type HitFilter struct {
	seen map[string]bool
}

// NewHitFilter creates an empty filter.
func NewHitFilter() *HitFilter {
	return &HitFilter{seen: make(map[string]bool)}
}

// ShouldInclude reports whether word should be included in the result set,
// marking it seen either way so later calls with the same word return false.
func (f *HitFilter) ShouldInclude(word string) bool {
	if f.seen[word] {
		return false
	}
	f.seen[word] = true
	return true
}
