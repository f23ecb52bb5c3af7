package game

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type codeSource interface {
	Allocate() (string, error)
}

// Engine applies game operations to rooms. Operations validate fully
// before touching anything, so a room handed to a failing operation comes
// back byte-for-byte unchanged; on success the room is mutated in place
// and the caller persists it. Each operation reads the clock at most once.
//
// The engine holds no room state and performs no I/O beyond the code
// allocator handed to it, so a single Engine serves every room.
type Engine struct {
	codes codeSource
	now   func() time.Time
	newID func() string
}

// NewEngine returns an engine drawing room codes from codes, tracking time
// with the system clock, and minting player and question ids as UUIDs.
func NewEngine(codes *CodeAllocator) *Engine {
	return &Engine{
		codes: codes,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// clampDuration normalizes the host-requested question window. The value
// arrives as a JSON number, so NaN and infinities are possible and fall
// back to the default; everything else clamps into the legal range.
func clampDuration(seconds float64) int {
	switch {
	case math.IsNaN(seconds) || math.IsInf(seconds, 0):
		return DefaultQuestionSeconds
	case seconds < MinQuestionSeconds:
		return MinQuestionSeconds
	case seconds > MaxQuestionSeconds:
		return MaxQuestionSeconds
	}

	return int(seconds)
}

// CreateRoom allocates a fresh room in the lobby phase with hostName as
// its sole player and host.
func (e *Engine) CreateRoom(hostName string, durationSeconds float64) (*Room, error) {
	name := strings.TrimSpace(hostName)
	if name == "" {
		return nil, fmt.Errorf("%w: host name is required", ErrInvalidInput)
	}

	code, err := e.codes.Allocate()
	if err != nil {
		return nil, err
	}

	now := e.now()
	host := &Player{
		ID:       e.newID(),
		Name:     name,
		JoinedAt: now,
		IsHost:   true,
	}

	return &Room{
		Code:                    code,
		HostID:                  host.ID,
		Phase:                   PhaseLobby,
		QuestionDurationSeconds: clampDuration(durationSeconds),
		CreatedAt:               now,
		Players:                 map[string]*Player{host.ID: host},
		Questions:               []*Question{},
	}, nil
}

// Join adds a new player to the room and returns them. Joining is valid in
// every phase; a late joiner during review simply becomes part of the
// completion barrier and votes from question zero.
func (e *Engine) Join(r *Room, name string) (*Player, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}

	p := &Player{
		ID:       e.newID(),
		Name:     trimmed,
		JoinedAt: e.now(),
	}
	r.Players[p.ID] = p

	return p, nil
}

// StartQuestions moves the room from the lobby into the question phase and
// opens the submission window, which closes QuestionDurationSeconds later.
func (e *Engine) StartQuestions(r *Room, actorID string) error {
	if actorID != r.HostID {
		return fmt.Errorf("%w: only the host can start the question phase", ErrForbidden)
	}
	if r.Phase != PhaseLobby {
		return fmt.Errorf("%w: the question phase starts from the lobby, not %s", ErrWrongPhase, r.Phase)
	}

	deadline := e.now().Add(time.Duration(r.QuestionDurationSeconds) * time.Second)
	r.Phase = PhaseQuestion
	r.QuestionDeadline = &deadline
	r.CurrentQuestionIndex = 0

	return nil
}

// SubmitQuestion appends a question with no votes. The deadline comparison
// uses this operation's clock snapshot, so a submission that was in flight
// when the window closed is judged by its own arrival time only.
func (e *Engine) SubmitQuestion(r *Room, playerID, text string) (*Question, error) {
	if r.Member(playerID) == nil {
		return nil, fmt.Errorf("%w: not a member of this room", ErrForbidden)
	}
	if r.Phase != PhaseQuestion {
		return nil, fmt.Errorf("%w: questions are only accepted during the question phase", ErrWrongPhase)
	}

	now := e.now()
	if r.QuestionDeadline != nil && now.After(*r.QuestionDeadline) {
		return nil, fmt.Errorf("%w: the question deadline has passed", ErrWrongPhase)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: question text is required", ErrInvalidInput)
	}

	q := &Question{
		ID:        e.newID(),
		Text:      trimmed,
		AuthorID:  playerID,
		CreatedAt: now,
		Votes:     map[string]string{},
	}
	r.Questions = append(r.Questions, q)

	return q, nil
}

// StartReview moves the room into the review phase and resets every
// player's voting progress. Calling it again during review restarts voting
// from scratch; that reset is the one sanctioned way finished players
// become unfinished.
func (e *Engine) StartReview(r *Room, actorID string) error {
	if actorID != r.HostID {
		return fmt.Errorf("%w: only the host can start the review phase", ErrForbidden)
	}
	if r.Phase != PhaseQuestion && r.Phase != PhaseReview {
		return fmt.Errorf("%w: review starts from the question phase, not %s", ErrWrongPhase, r.Phase)
	}
	if len(r.Questions) == 0 {
		return fmt.Errorf("%w: no questions have been submitted", ErrInvalidInput)
	}

	r.Phase = PhaseReview
	r.QuestionDeadline = nil
	for _, p := range r.Players {
		p.CurrentQuestionIndex = 0
		p.HasFinishedVoting = false
	}

	return nil
}

// SubmitVote records playerID's vote on the question at questionIndex and
// advances that player's progress. Voting on the last question marks the
// player finished, and the moment every player is finished the room
// completes on its own.
func (e *Engine) SubmitVote(r *Room, playerID, targetID string, questionIndex int) error {
	voter := r.Member(playerID)
	if voter == nil {
		return fmt.Errorf("%w: not a member of this room", ErrForbidden)
	}
	if r.Member(targetID) == nil {
		return fmt.Errorf("%w: target player %q", ErrNotFound, targetID)
	}
	if r.Phase != PhaseReview {
		return fmt.Errorf("%w: votes are only accepted during the review phase", ErrWrongPhase)
	}
	if questionIndex < 0 || questionIndex >= len(r.Questions) {
		return fmt.Errorf("%w: question index %d out of range", ErrInvalidInput, questionIndex)
	}

	r.Questions[questionIndex].Votes[playerID] = targetID

	if questionIndex == len(r.Questions)-1 {
		voter.HasFinishedVoting = true
	} else {
		voter.CurrentQuestionIndex = questionIndex + 1
	}

	if r.AllFinished() {
		r.Phase = PhaseComplete
		r.QuestionDeadline = nil
	}

	return nil
}

// Complete ends the room immediately. The host can call it from any phase:
// during review it is the "end voting early" action, elsewhere it is an
// abort. Completing an already complete room changes nothing.
func (e *Engine) Complete(r *Room, actorID string) error {
	if actorID != r.HostID {
		return fmt.Errorf("%w: only the host can complete the room", ErrForbidden)
	}

	r.Phase = PhaseComplete
	r.QuestionDeadline = nil

	return nil
}
