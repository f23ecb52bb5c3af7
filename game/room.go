/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game implements the group census party game: a host opens a room,
// players join it with a short code, everyone submits anonymous questions
// during a timed window, then each player votes at their own pace on which
// player best fits every question. The room reveals votes only after the
// last player finishes, so nobody's answers leak early.
//
// The package is the rule set and nothing else. Every operation is a
// synchronous transition from (current room, request) to (updated room or
// error); storage, transport, and broadcast belong to the caller, which is
// expected to serialize operations per room code.
package game

import (
	"sort"
	"time"
)

// Phase is a room's stage in the game lifecycle. Rooms only ever move
// forward: lobby → question → review → complete, where review may be
// re-entered to restart voting and complete is terminal.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseReview   Phase = "review"
	PhaseComplete Phase = "complete"
)

// Durations for the question window, in seconds.
const (
	MinQuestionSeconds     = 15
	MaxQuestionSeconds     = 300
	DefaultQuestionSeconds = 60
)

// Player is one participant in a room. Exactly one player per room has
// IsHost set, and that player's id equals the room's HostID.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	IsHost   bool      `json:"isHost"`

	// CurrentQuestionIndex is the next question this player votes on
	// during review. Players advance independently of each other.
	CurrentQuestionIndex int  `json:"currentQuestionIndex"`
	HasFinishedVoting    bool `json:"hasFinishedVoting"`
}

// Question is one submitted prompt. Once appended to a room its id, text,
// author, and timestamp never change; only Votes grows.
type Question struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`

	// Votes maps voter player id to the chosen target player id, at most
	// one entry per voter.
	Votes map[string]string `json:"votes"`
}

// Room is the aggregate: all players and questions of one game session.
type Room struct {
	Code                    string     `json:"code"`
	HostID                  string     `json:"hostId"`
	Phase                   Phase      `json:"phase"`
	QuestionDurationSeconds int        `json:"questionDurationSeconds"`
	QuestionDeadline        *time.Time `json:"questionDeadline,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`

	// CurrentQuestionIndex survives from an earlier lockstep-voting
	// design. It is reset when the question phase starts and is otherwise
	// informational; per-player indices drive the game.
	CurrentQuestionIndex int `json:"currentQuestionIndex"`

	Players   map[string]*Player `json:"players"`
	Questions []*Question        `json:"questions"`
}

// Member returns the player with the given id, or nil.
func (r *Room) Member(id string) *Player {
	return r.Players[id]
}

// AllFinished reports whether every current player has voted on every
// question. Rooms always hold at least the host, so an empty-room true is
// unreachable in practice.
func (r *Room) AllFinished() bool {
	for _, p := range r.Players {
		if !p.HasFinishedVoting {
			return false
		}
	}
	return true
}

// PlayersInJoinOrder returns the players sorted by join time, ties broken
// by id. Join order is the display order and the vote tie-break order.
func (r *Room) PlayersInJoinOrder() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clone returns a deep copy sharing no memory with the original.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}

	out := *r
	if r.QuestionDeadline != nil {
		deadline := *r.QuestionDeadline
		out.QuestionDeadline = &deadline
	}

	out.Players = make(map[string]*Player, len(r.Players))
	for id, p := range r.Players {
		player := *p
		out.Players[id] = &player
	}

	out.Questions = make([]*Question, len(r.Questions))
	for i, q := range r.Questions {
		question := *q
		question.Votes = make(map[string]string, len(q.Votes))
		for voter, target := range q.Votes {
			question.Votes[voter] = target
		}
		out.Questions[i] = &question
	}

	return &out
}
