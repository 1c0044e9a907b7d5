// Package scoring holds the pure scoring math: weighted aggregation, per-division
// ranking, cutoff tie detection, qualification and tabulation matrices.
// Nothing here touches storage; callers pass in the rows they loaded.
package scoring

import (
	"math"

	"github.com/abrezinsky/tabulator/internal/models"
)

// PercentBasis converts a weighted pageant total on the 0-10 criterion scale
// into the displayed percentage.
const PercentBasis = 10.0

// ScoreEpsilon is the tolerance under which two totals count as tied.
const ScoreEpsilon = 1e-9

// Equal reports whether two totals are tied.
func Equal(a, b float64) bool {
	return math.Abs(a-b) < ScoreEpsilon
}

// PageantSegmentScore returns Σ(mean judge score per criterion × criterion weight)
// for one contestant. A criterion nobody scored contributes 0.
func PageantSegmentScore(contestantID int, criteria []models.Criteria, scores []models.Score) float64 {
	total := 0.0
	for _, c := range criteria {
		sum, n := 0.0, 0
		for _, s := range scores {
			if s.ContestantID != contestantID || s.CriteriaID == nil || *s.CriteriaID != c.ID {
				continue
			}
			sum += s.Value
			n++
		}
		if n > 0 {
			total += (sum / float64(n)) * c.Weight
		}
	}
	return total
}

// PageantEventTotal sums segment score × segment weight over the event's normal
// segments and divides by PercentBasis. Finals and clinchers never count.
func PageantEventTotal(contestantID int, segments []models.Segment, criteria []models.Criteria, scores []models.Score) float64 {
	bySegment := CriteriaBySegment(criteria)
	total := 0.0
	for _, seg := range segments {
		if seg.Kind != models.RoundNormal && seg.Kind != "" {
			continue
		}
		total += PageantSegmentScore(contestantID, bySegment[seg.ID], scores) * seg.Weight
	}
	return total / PercentBasis
}

// QuizRoundScore sums the stored answer values of a contestant in one round.
func QuizRoundScore(contestantID, segmentID int, scores []models.Score) float64 {
	total := 0.0
	for _, s := range scores {
		if s.ContestantID == contestantID && s.SegmentID == segmentID {
			total += s.Value
		}
	}
	return total
}

// QuizEventTotal sums a contestant's answers over segmentIDs. Passing a single
// round gives the reset total used by finals and clinchers.
func QuizEventTotal(contestantID int, segmentIDs []int, scores []models.Score) float64 {
	include := make(map[int]bool, len(segmentIDs))
	for _, id := range segmentIDs {
		include[id] = true
	}
	total := 0.0
	for _, s := range scores {
		if s.ContestantID == contestantID && include[s.SegmentID] {
			total += s.Value
		}
	}
	return total
}

// CriteriaBySegment groups criteria by their segment id.
func CriteriaBySegment(criteria []models.Criteria) map[int][]models.Criteria {
	out := make(map[int][]models.Criteria)
	for _, c := range criteria {
		out[c.SegmentID] = append(out[c.SegmentID], c)
	}
	return out
}

// WeightSum adds up weights, used to check the 1.0 ± ε budgets.
func WeightSum[T any](items []T, weight func(T) float64) float64 {
	sum := 0.0
	for _, item := range items {
		sum += weight(item)
	}
	return sum
}
