// Package normalize rescales raw parameter values onto [0,1] within their
// (competition, season, parameter) peer group using min-max bounds.
package normalize

// midpoint is the value assigned when a peer group cannot spread: fewer than
// two non-null observations, or all observations equal. It is reserved for
// this degenerate case; missing data stays null.
const midpoint = 0.5

// Value is one team's raw observation within a normalization scope. Raw is
// nil when the collector has produced no value for the team.
type Value struct {
	TeamID int64
	Raw    *float64
}

// MinMax maps every non-null raw value onto [0,1] so the best team scores
// 1.0 and the worst 0.0. Nulls pass through as nil. The mapping depends only
// on the multiset of raw values, never on input order, and is bit-for-bit
// deterministic. lowerIsBetter inverts the scale after rescaling.
func MinMax(values []Value, lowerIsBetter bool) map[int64]*float64 {
	out := make(map[int64]*float64, len(values))

	var (
		count    int
		min, max float64
	)
	for _, v := range values {
		if v.Raw == nil {
			continue
		}
		if count == 0 {
			min, max = *v.Raw, *v.Raw
		} else {
			if *v.Raw < min {
				min = *v.Raw
			}
			if *v.Raw > max {
				max = *v.Raw
			}
		}
		count++
	}

	degenerate := count < 2 || max == min
	span := max - min

	for _, v := range values {
		if v.Raw == nil {
			out[v.TeamID] = nil
			continue
		}
		var n float64
		if degenerate {
			n = midpoint
		} else {
			n = (*v.Raw - min) / span
			if lowerIsBetter {
				n = 1 - n
			}
		}
		normalized := n
		out[v.TeamID] = &normalized
	}
	return out
}

// Rescale applies MinMax to an already keyed map, preserving nulls. Used for
// the local-league variant where overall strengths are re-spread across a
// competition.
func Rescale(values map[int64]*float64) map[int64]*float64 {
	in := make([]Value, 0, len(values))
	for teamID, raw := range values {
		in = append(in, Value{TeamID: teamID, Raw: raw})
	}
	return MinMax(in, false)
}
