package pii

// Triage partitions a match set into auto-approved and needs-review
// subsets at the given confidence threshold. A span with confidence
// greater than or equal to the threshold is approved; everything else
// needs external adjudication. The partition is pure and preserves
// position order within each subset.
//
// Deployments typically run with a threshold of 0.85, but the value
// is always caller-supplied.
func Triage(matches MatchSet, threshold float64) (approved, needsReview MatchSet) {
	approved = MatchSet{}
	needsReview = MatchSet{}
	for _, span := range matches {
		if span.Confidence >= threshold {
			approved = append(approved, span)
		} else {
			needsReview = append(needsReview, span)
		}
	}
	return approved, needsReview
}

// Merge combines the auto-approved spans with the replacement list
// returned by an external adjudicator into the final MatchSet. The
// adjudicator may confirm, adjust, or omit spans; whatever it returns
// is taken as-is. The result is re-sorted by position and passed
// through overlap resolution in case an adjusted span now collides
// with an approved one.
func Merge(approved, replacement MatchSet) MatchSet {
	merged := make(MatchSet, 0, len(approved)+len(replacement))
	merged = append(merged, approved...)
	merged = append(merged, replacement...)
	merged.SortByPosition()
	return resolveOverlaps(merged)
}
