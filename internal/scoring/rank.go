package scoring

import (
	"sort"
)

// Entry is one contestant's computed total.
type Entry struct {
	ContestantID    int     `json:"contestant_id"`
	CandidateNumber int     `json:"candidate_number"`
	Name            string  `json:"name"`
	Division        string  `json:"division"`
	Score           float64 `json:"score"`
}

// Ranked is an Entry with its 1-based rank inside its division.
type Ranked struct {
	Entry
	Rank int `json:"rank"`
}

// Ranking maps each division to its contestants, best first.
type Ranking map[string][]Ranked

// Rank splits entries by division and sorts each division by descending score.
// Equal scores keep their input order; there is no secondary key. Rank is the
// position in the sorted list plus one.
func Rank(entries []Entry) Ranking {
	out := make(Ranking)
	for _, e := range entries {
		out[e.Division] = append(out[e.Division], Ranked{Entry: e})
	}
	for division, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Score > list[j].Score
		})
		for i := range list {
			list[i].Rank = i + 1
		}
		out[division] = list
	}
	return out
}

// Divisions returns the ranking's division names in sorted order.
func (r Ranking) Divisions() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContestantIDs returns the ids of a ranked list in order.
func ContestantIDs(list []Ranked) []int {
	ids := make([]int, len(list))
	for i, r := range list {
		ids[i] = r.ContestantID
	}
	return ids
}

// TieGroup is a run of equal scores in a sorted list. Start is 0-indexed.
type TieGroup struct {
	Start   int
	Members []Ranked
}

// Size returns the number of contestants sharing the score.
func (g TieGroup) Size() int { return len(g.Members) }

// Score returns the shared score.
func (g TieGroup) Score() float64 {
	if len(g.Members) == 0 {
		return 0
	}
	return g.Members[0].Score
}

// TieGroups partitions a sorted list into contiguous equal-score groups.
func TieGroups(list []Ranked) []TieGroup {
	var groups []TieGroup
	for i, r := range list {
		if n := len(groups); n > 0 && Equal(groups[n-1].Score(), r.Score) {
			groups[n-1].Members = append(groups[n-1].Members, r)
			continue
		}
		groups = append(groups, TieGroup{Start: i, Members: []Ranked{r}})
	}
	return groups
}

// Cutoff is the outcome of checking a qualifier limit against a sorted list.
type Cutoff struct {
	// Winners qualify outright.
	Winners []Ranked
	// Tied share the boundary score and compete for Spots places.
	Tied  []Ranked
	Spots int
}

// HasTie reports whether the boundary needs a clincher.
func (c Cutoff) HasTie() bool { return len(c.Tied) > 0 }

// CutoffTie compares the score at position limit with the one just below it.
// A pool no larger than limit, or limit 0, qualifies everyone.
func CutoffTie(list []Ranked, limit int) Cutoff {
	if limit <= 0 || len(list) <= limit {
		return Cutoff{Winners: list}
	}
	boundary := list[limit-1].Score
	if !Equal(boundary, list[limit].Score) {
		return Cutoff{Winners: list[:limit]}
	}

	var c Cutoff
	for _, r := range list {
		switch {
		case Equal(r.Score, boundary):
			c.Tied = append(c.Tied, r)
		case r.Score > boundary:
			c.Winners = append(c.Winners, r)
		}
	}
	c.Spots = limit - len(c.Winners)
	return c
}
