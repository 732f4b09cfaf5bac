package pii

// Aggregate merges candidate spans from all detectors into a single
// non-overlapping MatchSet.
//
// Exact duplicates (same start and end) are collapsed first, keeping
// the highest confidence; on equal confidence the first one
// encountered wins, so detector registration order is the stable
// tie-break. Overlapping but non-identical spans are then resolved by
// repeatedly discarding the lowest-priority span of an overlapping
// pair until no overlaps remain. Priority: higher confidence, then
// longer span, then earlier start. The elimination is iterative, so a
// chain of pairwise-overlapping spans collapses transitively.
func Aggregate(candidates []Span) MatchSet {
	if len(candidates) == 0 {
		return MatchSet{}
	}

	// Collapse exact (start, end) duplicates, keeping the highest
	// confidence. Iteration preserves input order so the first span
	// wins confidence ties.
	type position struct{ start, end int }
	byPosition := make(map[position]Span)
	order := make([]position, 0, len(candidates))
	for _, span := range candidates {
		key := position{span.Start, span.End}
		existing, seen := byPosition[key]
		if !seen {
			byPosition[key] = span
			order = append(order, key)
			continue
		}
		if span.Confidence > existing.Confidence {
			byPosition[key] = span
		}
	}

	spans := make(MatchSet, 0, len(order))
	for _, key := range order {
		spans = append(spans, byPosition[key])
	}
	spans.SortByPosition()

	return resolveOverlaps(spans)
}

// resolveOverlaps repeatedly removes the lower-priority span of the
// first overlapping pair until the set is overlap-free. Input must be
// position-sorted; output stays sorted because removal preserves order.
func resolveOverlaps(spans MatchSet) MatchSet {
	for {
		conflict := -1
		for i := 1; i < len(spans); i++ {
			if spans[i-1].Overlaps(spans[i]) {
				conflict = i
				break
			}
		}
		if conflict == -1 {
			return spans
		}

		loser := conflict
		if higherPriority(spans[conflict], spans[conflict-1]) {
			loser = conflict - 1
		}
		spans = append(spans[:loser], spans[loser+1:]...)
	}
}

// higherPriority reports whether a outranks b for overlap resolution:
// strictly higher confidence, then longer span, then earlier start.
func higherPriority(a, b Span) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Length() != b.Length() {
		return a.Length() > b.Length()
	}
	return a.Start < b.Start
}
