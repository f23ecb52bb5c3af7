package game

// QuestionResult is the aggregated outcome of one question: how many votes
// each target received and who won.
type QuestionResult struct {
	QuestionID string         `json:"questionId"`
	Counts     map[string]int `json:"counts"`
	WinnerID   string         `json:"winnerId,omitempty"`
}

// Results tallies every question's votes in question order. The winner is
// the target with the strictly highest count; a tie goes to the target who
// joined the room earliest (then the smaller id), so the outcome never
// depends on map iteration order. Questions with no votes have no winner.
func Results(room *Room) []QuestionResult {
	byJoin := room.PlayersInJoinOrder()

	out := make([]QuestionResult, 0, len(room.Questions))
	for _, q := range room.Questions {
		counts := make(map[string]int, len(q.Votes))
		for _, target := range q.Votes {
			counts[target]++
		}

		winner := ""
		best := 0
		for _, p := range byJoin {
			if counts[p.ID] > best {
				best = counts[p.ID]
				winner = p.ID
			}
		}

		out = append(out, QuestionResult{
			QuestionID: q.ID,
			Counts:     counts,
			WinnerID:   winner,
		})
	}

	return out
}
