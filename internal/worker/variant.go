package worker

// AssignVariant returns the A/B variant label for the prospect at the given
// position in the ordered scheduling batch, or "" when the campaign has a
// single template.
//
// The split alternates strictly by position (even index A, odd index B)
// rather than randomizing, so re-running scheduling against the same
// ordered prospect list is deterministic. For N prospects the counts of A
// and B differ by at most one.
func AssignVariant(index int, variantsConfigured bool) string {
	if !variantsConfigured {
		return ""
	}
	if index%2 == 0 {
		return "A"
	}
	return "B"
}
