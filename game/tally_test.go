package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultsCountsAndWinner(t *testing.T) {
	e, _ := newTestEngine()
	room, players := reviewRoom(t, e, []string{"Sam", "Kim"},
		[]string{"Who would survive a zombie film?", "Who texts back instantly?"})
	alex, sam, kim := players[0], players[1], players[2]

	// Question 0: Sam takes it two votes to one.
	require.NoError(t, e.SubmitVote(room, alex.ID, sam.ID, 0))
	require.NoError(t, e.SubmitVote(room, sam.ID, sam.ID, 0))
	require.NoError(t, e.SubmitVote(room, kim.ID, alex.ID, 0))

	// Question 1: everyone picks Kim.
	require.NoError(t, e.SubmitVote(room, alex.ID, kim.ID, 1))
	require.NoError(t, e.SubmitVote(room, sam.ID, kim.ID, 1))
	require.NoError(t, e.SubmitVote(room, kim.ID, kim.ID, 1))
	require.Equal(t, PhaseComplete, room.Phase)

	results := Results(room)
	require.Len(t, results, 2)

	assert.Equal(t, room.Questions[0].ID, results[0].QuestionID)
	assert.Equal(t, map[string]int{sam.ID: 2, alex.ID: 1}, results[0].Counts)
	assert.Equal(t, sam.ID, results[0].WinnerID)

	assert.Equal(t, room.Questions[1].ID, results[1].QuestionID)
	assert.Equal(t, map[string]int{kim.ID: 3}, results[1].Counts)
	assert.Equal(t, kim.ID, results[1].WinnerID)
}

func TestResultsTieGoesToEarliestJoiner(t *testing.T) {
	e, clock := newTestEngine()
	room, err := e.CreateRoom("Alex", 60)
	require.NoError(t, err)
	alex := room.Member(room.HostID)

	clock.Advance(time.Second)
	sam, err := e.Join(room, "Sam")
	require.NoError(t, err)
	clock.Advance(time.Second)
	kim, err := e.Join(room, "Kim")
	require.NoError(t, err)
	clock.Advance(time.Second)
	dana, err := e.Join(room, "Dana")
	require.NoError(t, err)

	require.NoError(t, e.StartQuestions(room, room.HostID))
	_, err = e.SubmitQuestion(room, alex.ID, "Who is secretly a morning person?")
	require.NoError(t, err)
	require.NoError(t, e.StartReview(room, room.HostID))

	// Sam and Kim tie at two votes apiece.
	require.NoError(t, e.SubmitVote(room, alex.ID, sam.ID, 0))
	require.NoError(t, e.SubmitVote(room, sam.ID, kim.ID, 0))
	require.NoError(t, e.SubmitVote(room, kim.ID, sam.ID, 0))
	require.NoError(t, e.SubmitVote(room, dana.ID, kim.ID, 0))

	results := Results(room)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]int{sam.ID: 2, kim.ID: 2}, results[0].Counts)
	assert.Equal(t, sam.ID, results[0].WinnerID, "Sam joined before Kim")
}

func TestResultsTieBreakIsDeterministic(t *testing.T) {
	e, clock := newTestEngine()
	room, err := e.CreateRoom("Alex", 60)
	require.NoError(t, err)
	alex := room.Member(room.HostID)

	clock.Advance(time.Second)
	sam, err := e.Join(room, "Sam")
	require.NoError(t, err)

	require.NoError(t, e.StartQuestions(room, room.HostID))
	_, err = e.SubmitQuestion(room, alex.ID, "Who would eat dessert first?")
	require.NoError(t, err)
	require.NoError(t, e.StartReview(room, room.HostID))

	// A genuine tie: each votes for the other.
	require.NoError(t, e.SubmitVote(room, alex.ID, sam.ID, 0))
	require.NoError(t, e.SubmitVote(room, sam.ID, alex.ID, 0))

	first := Results(room)
	require.Len(t, first, 1)
	assert.Equal(t, alex.ID, first[0].WinnerID, "ties fall to the earliest joiner")

	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Results(room))
	}
}

func TestResultsEmptyQuestionHasNoWinner(t *testing.T) {
	e, _ := newTestEngine()
	room, _ := reviewRoom(t, e, []string{"Sam"}, []string{"Who never answers the group chat?"})

	results := Results(room)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Counts)
	assert.Empty(t, results[0].WinnerID)
}

func TestResultsDoesNotMutateRoom(t *testing.T) {
	e, _ := newTestEngine()
	room, players := reviewRoom(t, e, []string{"Sam"}, []string{"Who hoards hotel soaps?"})
	require.NoError(t, e.SubmitVote(room, players[0].ID, players[1].ID, 0))

	before := room.Clone()
	results := Results(room)
	results[0].Counts["ghost"] = 99

	assert.Equal(t, before, room)
}
