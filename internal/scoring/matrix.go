package scoring

import (
	"github.com/abrezinsky/tabulator/internal/models"
)

// MatrixColumn labels one score column: a judge in pageant mode, a round in quiz mode.
type MatrixColumn struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// MatrixRow is one contestant's line in the tabulation sheet.
type MatrixRow struct {
	Rank            int       `json:"rank"`
	ContestantID    int       `json:"contestant_id"`
	CandidateNumber int       `json:"candidate_number"`
	Name            string    `json:"name"`
	Values          []float64 `json:"values"`
	Total           float64   `json:"total"`
}

// Matrix is the per-division tabulation sheet.
type Matrix struct {
	Columns   []MatrixColumn         `json:"columns"`
	Divisions map[string][]MatrixRow `json:"divisions"`
}

// PageantMatrix builds the judge × contestant sheet for one segment. A judge
// column is that judge's Σ(score × criterion weight), not averaged; the total
// is the averaged segment score used for ranking.
func PageantMatrix(segment models.Segment, contestants []models.Contestant, judges []models.Judge, criteria []models.Criteria, scores []models.Score) Matrix {
	weights := make(map[int]float64, len(criteria))
	for _, c := range criteria {
		weights[c.ID] = c.Weight
	}

	var columns []MatrixColumn
	for _, j := range judges {
		if j.Role == models.RoleJudge {
			columns = append(columns, MatrixColumn{ID: j.ID, Label: j.Name})
		}
	}

	values := make(map[int][]float64)
	var entries []Entry
	for _, c := range contestants {
		if !segment.Allows(c.ID) {
			continue
		}
		row := make([]float64, len(columns))
		for i, col := range columns {
			for _, s := range scores {
				if s.ContestantID != c.ID || s.JudgeID == nil || *s.JudgeID != col.ID || s.CriteriaID == nil {
					continue
				}
				if w, ok := weights[*s.CriteriaID]; ok {
					row[i] += s.Value * w
				}
			}
		}
		values[c.ID] = row
		entries = append(entries, entryFor(c, PageantSegmentScore(c.ID, criteria, scores)))
	}

	return buildMatrix(columns, entries, values)
}

// QuizMatrix builds the round × contestant sheet for an event. Each column is
// a round's sum; the total is the sum of the columns.
func QuizMatrix(segments []models.Segment, contestants []models.Contestant, scores []models.Score) Matrix {
	columns := make([]MatrixColumn, len(segments))
	for i, seg := range segments {
		columns[i] = MatrixColumn{ID: seg.ID, Label: seg.Name}
	}

	values := make(map[int][]float64)
	entries := make([]Entry, 0, len(contestants))
	for _, c := range contestants {
		row := make([]float64, len(columns))
		total := 0.0
		for i, col := range columns {
			row[i] = QuizRoundScore(c.ID, col.ID, scores)
			total += row[i]
		}
		values[c.ID] = row
		entries = append(entries, entryFor(c, total))
	}

	return buildMatrix(columns, entries, values)
}

func buildMatrix(columns []MatrixColumn, entries []Entry, values map[int][]float64) Matrix {
	m := Matrix{Columns: columns, Divisions: make(map[string][]MatrixRow)}
	if m.Columns == nil {
		m.Columns = []MatrixColumn{}
	}
	ranking := Rank(entries)
	for _, division := range ranking.Divisions() {
		for _, r := range ranking[division] {
			m.Divisions[division] = append(m.Divisions[division], MatrixRow{
				Rank:            r.Rank,
				ContestantID:    r.ContestantID,
				CandidateNumber: r.CandidateNumber,
				Name:            r.Name,
				Values:          values[r.ContestantID],
				Total:           r.Score,
			})
		}
	}
	return m
}

func entryFor(c models.Contestant, score float64) Entry {
	return Entry{
		ContestantID:    c.ID,
		CandidateNumber: c.CandidateNumber,
		Name:            c.Name,
		Division:        c.Division,
		Score:           score,
	}
}

// EntriesFor turns contestants into ranking entries using score.
func EntriesFor(contestants []models.Contestant, score func(models.Contestant) float64) []Entry {
	entries := make([]Entry, 0, len(contestants))
	for _, c := range contestants {
		entries = append(entries, entryFor(c, score(c)))
	}
	return entries
}
