package scoring

// ComputeQualification applies the same limit to every division: the first
// limit contestants of each sorted list qualify, the rest are eliminated.
// limit 0 qualifies everyone.
func ComputeQualification(r Ranking, limit int) (qualified, eliminated []int) {
	qualified = []int{}
	eliminated = []int{}
	for _, division := range r.Divisions() {
		for i, entry := range r[division] {
			if limit <= 0 || i < limit {
				qualified = append(qualified, entry.ContestantID)
			} else {
				eliminated = append(eliminated, entry.ContestantID)
			}
		}
	}
	return qualified, eliminated
}
