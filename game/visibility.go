package game

// Redact returns a copy of the room safe to show any client given the
// current phase. Every room that leaves the engine for a response or a
// broadcast goes through here; the unredacted room exists only for the
// engine and the authoritative store.
//
// Complete rooms are returned whole. During review, question text and
// authorship are visible but all votes are withheld, a voter's own
// included, until everyone has finished. Before review, question text and
// authorship are blanked too, leaving ids and timestamps so clients can
// still count submissions without learning their content.
func Redact(room *Room) *Room {
	out := room.Clone()

	switch out.Phase {
	case PhaseComplete:
		return out

	case PhaseReview:
		for _, q := range out.Questions {
			q.Votes = map[string]string{}
		}

	default:
		for _, q := range out.Questions {
			q.Text = ""
			q.AuthorID = ""
			q.Votes = map[string]string{}
		}
	}

	return out
}
