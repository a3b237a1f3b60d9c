package game_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/trivia-director/game"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/stretchr/testify/require"
)

func setupTestFixture(t *testing.T) *game.State {
	t.Helper()
	s := game.New()
	s.SetClock(func() time.Time { return time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC) })
	require.NoError(t, s.StartEvent("Friday Quiz"))
	require.NoError(t, s.AddPlayer("Ann"))
	require.NoError(t, s.AddPlayer("Ben"))
	require.NoError(t, s.LoadBoard([]game.Category{
		{Name: "History", Questions: []game.Question{{Points: 100, Prompt: "p1", Answer: "a1"}, {Points: 200, Prompt: "p2", Answer: "a2"}}},
		{Name: "Science", Questions: []game.Question{{Points: 100, Prompt: "p3", Answer: "a3"}}},
	}))
	return s
}

func TestAwardFlow(t *testing.T) {
	s := setupTestFixture(t)
	ref := game.QuestionRef{Category: 0, Question: 1}

	require.NoError(t, s.SelectQuestion(ref, 30))
	require.Equal(t, 30, s.Timer)
	s.StartTimer()
	s.Tick()
	require.Equal(t, 29, s.Timer)

	require.NoError(t, s.Award(1))
	require.Equal(t, 200, s.Players[1].Score)
	require.Nil(t, s.CurrentQuestion)
	require.False(t, s.IsTimerRunning)
	q := s.Categories[0].Questions[1]
	require.Equal(t, game.QuestionAwarded, q.Status)
	require.Equal(t, 1, *q.AwardedTo)
	require.Equal(t, 2, s.Remaining())

	// one-way until reset
	require.ErrorIs(t, s.SelectQuestion(ref, 30), apperrors.ErrInvalidTransition)
	require.ErrorIs(t, s.Award(0), apperrors.ErrInvalidTransition)

	require.NoError(t, s.Reset(ref))
	require.Equal(t, 0, s.Players[1].Score)
	require.Equal(t, game.QuestionAvailable, s.Categories[0].Questions[1].Status)
	require.Equal(t, 3, s.Remaining())
}

func TestVoidAndClose(t *testing.T) {
	s := setupTestFixture(t)

	require.NoError(t, s.SelectQuestion(game.QuestionRef{Category: 0, Question: 0}, 10))
	require.NoError(t, s.Void())
	require.Equal(t, game.QuestionVoided, s.Categories[0].Questions[0].Status)

	require.NoError(t, s.SelectQuestion(game.QuestionRef{Category: 1, Question: 0}, 10))
	require.NoError(t, s.Close())
	require.Equal(t, game.QuestionClosed, s.Categories[1].Questions[0].Status)
	require.Equal(t, 0, s.Players[0].Score+s.Players[1].Score)

	require.ErrorIs(t, s.Close(), apperrors.ErrInvalidTransition)
	require.ErrorIs(t, s.SelectQuestion(game.QuestionRef{Category: 5, Question: 0}, 10), apperrors.ErrValidation)
}

func TestPlayers(t *testing.T) {
	s := game.New()
	for i := 0; i < game.MaxPlayers; i++ {
		require.NoError(t, s.AddPlayer(fmt.Sprintf("P%d", i)))
	}
	require.ErrorIs(t, s.AddPlayer("one too many"), apperrors.ErrValidation)
	require.ErrorIs(t, s.AddPlayer("p0"), apperrors.ErrValidation)

	require.NoError(t, s.SetActivePlayer(7))
	require.NoError(t, s.RemovePlayer(7))
	require.Equal(t, 6, s.ActivePlayerIndex)
	s.NextPlayer()
	require.Equal(t, 0, s.ActivePlayerIndex)

	require.NoError(t, s.AdjustScore(2, -50))
	require.Equal(t, -50, s.Players[2].Score)
	require.ErrorIs(t, s.AdjustScore(9, 1), apperrors.ErrValidation)
}

func TestRemovePlayer_ReindexesAwards(t *testing.T) {
	s := setupTestFixture(t)
	require.NoError(t, s.AddPlayer("Cat"))

	require.NoError(t, s.SelectQuestion(game.QuestionRef{Category: 0, Question: 0}, 10))
	require.NoError(t, s.Award(2))
	require.NoError(t, s.SelectQuestion(game.QuestionRef{Category: 1, Question: 0}, 10))
	require.NoError(t, s.Award(0))

	require.NoError(t, s.RemovePlayer(0))
	require.Equal(t, "Cat", s.Players[1].Name)
	require.Equal(t, 1, *s.Categories[0].Questions[0].AwardedTo)
	require.Nil(t, s.Categories[1].Questions[0].AwardedTo)
}

func TestActivityLogCapped(t *testing.T) {
	s := setupTestFixture(t)
	for i := 0; i < game.ActivityLogCap+10; i++ {
		require.NoError(t, s.AdjustScore(0, 1))
	}
	require.Len(t, s.ActivityLog, game.ActivityLogCap)
	require.Contains(t, s.ActivityLog[0].Message, "Ann score adjusted by +1")
}

func TestCloneIsDeep(t *testing.T) {
	s := setupTestFixture(t)
	require.NoError(t, s.SelectQuestion(game.QuestionRef{Category: 0, Question: 0}, 10))
	require.NoError(t, s.Award(0))

	c := s.Clone()
	c.Players[0].Score = 999
	*c.Categories[0].Questions[0].AwardedTo = 1
	c.Categories[1].Name = "Changed"

	require.Equal(t, 100, s.Players[0].Score)
	require.Equal(t, 0, *s.Categories[0].Questions[0].AwardedTo)
	require.Equal(t, "Science", s.Categories[1].Name)
}

func TestDecode(t *testing.T) {
	s := setupTestFixture(t)
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	decoded, err := game.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "Friday Quiz", decoded.EventName)
	require.Len(t, decoded.Categories, 2)

	_, err = game.Decode([]byte("{not json"))
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEndEvent(t *testing.T) {
	s := setupTestFixture(t)
	require.NoError(t, s.SelectQuestion(game.QuestionRef{Category: 0, Question: 0}, 10))
	s.StartTimer()
	s.EndEvent()
	require.False(t, s.IsActive)
	require.False(t, s.IsTimerRunning)
	require.Nil(t, s.CurrentQuestion)
	require.ErrorIs(t, s.StartEvent("  "), apperrors.ErrValidation)
}
