package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/search"
	"github.com/mitchelldurbincs/TacticalSearch/internal/testutil"
)

func openTestStore(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir(), testutil.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDecision(turn int) search.Decision {
	return search.Decision{
		EpisodeID: uuid.New(),
		Team:      core.Team(turn % 2),
		Turn:      turn,
		Plan: []core.ActionFields{{
			Kind: core.ActMoveAttack, Team: core.Team(turn % 2), ActingID: 3, TargetID: 17,
			Origin: core.Coordinate{X: 2, Y: 3}, Dest: core.Coordinate{X: 4, Y: 3},
		}},
		Value:    37,
		Nodes:    1200,
		Elapsed:  25 * time.Millisecond,
		Complete: true,
		Masked:   []int{5},
	}
}

func TestStorage_EpisodeRoundTrip(t *testing.T) {
	s := openTestStore(t)

	ep := NewEpisode("game-1", testDecision(4))
	require.NoError(t, s.SaveEpisode(ep))

	got, err := s.LoadEpisode(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, ep.GameID, got.GameID)
	assert.Equal(t, ep.Plan, got.Plan)
	assert.Equal(t, ep.Value, got.Value)
	assert.Equal(t, ep.Elapsed, got.Elapsed)
	assert.Equal(t, ep.Masked, got.Masked)
	assert.True(t, ep.CreatedAt.Equal(got.CreatedAt))

	_, err = s.LoadEpisode(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.SaveEpisode(&Episode{GameID: "game-1"}), "episodes need an id")
}

func TestStorage_GameEpisodesOrderedByTurn(t *testing.T) {
	s := openTestStore(t)

	for _, turn := range []int{3, 0, 12, 1} {
		require.NoError(t, s.SaveEpisode(NewEpisode("game-a", testDecision(turn))))
	}
	require.NoError(t, s.SaveEpisode(NewEpisode("game-ab", testDecision(7))))

	episodes, err := s.GameEpisodes("game-a")
	require.NoError(t, err)
	require.Len(t, episodes, 4)
	var turns []int
	for _, ep := range episodes {
		turns = append(turns, ep.Turn)
		assert.Equal(t, "game-a", ep.GameID)
	}
	assert.Equal(t, []int{0, 1, 3, 12}, turns)

	n, err := s.CountEpisodes()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	none, err := s.GameEpisodes("missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStorage_Results(t *testing.T) {
	s := openTestStore(t)

	r := &GameResult{GameID: "g", Winner: core.Blue, Reason: "eliminated", FinalTurn: 9, Duration: time.Second, Episodes: 9}
	require.NoError(t, s.SaveResult(r))

	got, err := s.LoadResult("g")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = s.LoadResult("other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_DeleteGame(t *testing.T) {
	s := openTestStore(t)

	ep := NewEpisode("g", testDecision(0))
	require.NoError(t, s.SaveEpisode(ep))
	require.NoError(t, s.SaveEpisode(NewEpisode("keep", testDecision(0))))
	require.NoError(t, s.SaveResult(&GameResult{GameID: "g"}))

	require.NoError(t, s.DeleteGame("g"))

	_, err := s.LoadEpisode(ep.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LoadResult("g")
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.CountEpisodes()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorage_InMemory(t *testing.T) {
	s, err := OpenInMemory(testutil.NopLogger())
	require.NoError(t, err)
	defer s.Close()

	ep := NewEpisode("mem", testDecision(2))
	require.NoError(t, s.SaveEpisode(ep))
	got, err := s.LoadEpisode(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Turn)
}
