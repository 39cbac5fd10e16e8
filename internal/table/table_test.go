// internal/table/table_test.go
package table

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerummy/rummy-service/internal/models"
	"github.com/tablerummy/rummy-service/internal/round"
)

func seat(t *testing.T, tbl *Table, name string) *models.Player {
	t.Helper()
	p := &models.Player{ID: uuid.New(), DisplayName: name}
	require.NoError(t, tbl.AddPlayer(p))
	return p
}

func TestSeatAssignment(t *testing.T) {
	tbl := NewTable(models.TableConfig{MaxPlayers: 3}, uuid.New())

	a := seat(t, tbl, "a")
	b := seat(t, tbl, "b")
	c := seat(t, tbl, "c")
	assert.Equal(t, []int{0, 1, 2}, []int{a.Seat, b.Seat, c.Seat})

	assert.ErrorIs(t, tbl.AddPlayer(&models.Player{ID: uuid.New()}), ErrTableFull)
	assert.ErrorIs(t, tbl.AddPlayer(&models.Player{ID: a.ID}), ErrAlreadySeated)

	// Freeing the middle seat makes it the lowest free one again.
	require.NoError(t, tbl.RemovePlayer(b.ID))
	d := seat(t, tbl, "d")
	assert.Equal(t, 1, d.Seat)

	assert.ErrorIs(t, tbl.RemovePlayer(b.ID), ErrNotSeated)
}

func TestStartRoundRequiresTwoPlayers(t *testing.T) {
	tbl := NewTable(models.TableConfig{}, uuid.New())
	seat(t, tbl, "a")

	err := tbl.StartRound(nil)
	assert.ErrorIs(t, err, round.ErrInsufficientPlayers)
	assert.Equal(t, StatusLobby, tbl.Status())
	assert.Equal(t, 0, tbl.RoundNumber())
}

func TestStartRoundLocksSeating(t *testing.T) {
	tbl := NewTable(models.TableConfig{}, uuid.New())
	a := seat(t, tbl, "a")
	seat(t, tbl, "b")

	seed := int64(42)
	require.NoError(t, tbl.StartRound(&seed))
	assert.Equal(t, StatusPlaying, tbl.Status())
	assert.Equal(t, 1, tbl.RoundNumber())
	require.NotNil(t, tbl.CurrentRound())

	assert.ErrorIs(t, tbl.AddPlayer(&models.Player{ID: uuid.New()}), ErrRoundInProgress)
	assert.ErrorIs(t, tbl.RemovePlayer(a.ID), ErrRoundInProgress)
	assert.ErrorIs(t, tbl.StartRound(nil), ErrRoundInProgress)
}

func TestPrepareNextRoundTooEarly(t *testing.T) {
	tbl := NewTable(models.TableConfig{}, uuid.New())
	seat(t, tbl, "a")
	seat(t, tbl, "b")

	assert.ErrorIs(t, tbl.PrepareNextRound(nil), round.ErrRoundNotComplete)

	seed := int64(42)
	require.NoError(t, tbl.StartRound(&seed))
	assert.ErrorIs(t, tbl.PrepareNextRound(nil), round.ErrRoundNotComplete)
}

func TestPrepareNextRoundAppliesScoresAndRotates(t *testing.T) {
	tbl := NewTable(models.TableConfig{DisqualifyScore: 200}, uuid.New())
	a := seat(t, tbl, "a")
	b := seat(t, tbl, "b")
	c := seat(t, tbl, "c")

	seed := int64(42)
	require.NoError(t, tbl.StartRound(&seed))

	// Seat 1 drops out, then seat 2, leaving seat 0 the winner.
	r := tbl.CurrentRound()
	require.NoError(t, r.Drop(b.ID))
	require.NoError(t, r.Drop(c.ID))
	require.Equal(t, round.StatusComplete, r.CurrentStatus())

	require.NoError(t, tbl.PrepareNextRound(&seed))
	assert.Equal(t, StatusPlaying, tbl.Status())
	assert.Equal(t, 2, tbl.RoundNumber())

	totals := tbl.Totals()
	assert.Equal(t, 0, totals[a.ID])
	assert.Equal(t, 20, totals[b.ID])
	assert.Equal(t, 20, totals[c.ID])

	history := tbl.History()
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Number)
	assert.Equal(t, a.ID, history[0].Result.WinnerID)

	// Round two opens with the next seat as starter.
	next := tbl.CurrentRound()
	require.NotNil(t, next)
	assert.NotEqual(t, r.ID, next.ID)
	assert.Equal(t, b.ID, next.ActivePlayerID())
}

func TestDisqualificationFinishesTable(t *testing.T) {
	tbl := NewTable(models.TableConfig{DisqualifyScore: 20}, uuid.New())
	a := seat(t, tbl, "a")
	b := seat(t, tbl, "b")

	seed := int64(42)
	require.NoError(t, tbl.StartRound(&seed))
	require.NoError(t, tbl.CurrentRound().Drop(b.ID))

	// The drop penalty alone reaches the threshold, so only one eligible
	// player remains and the table finishes instead of dealing again.
	require.NoError(t, tbl.PrepareNextRound(nil))
	assert.Equal(t, StatusFinished, tbl.Status())
	assert.Nil(t, tbl.CurrentRound())
	assert.True(t, b.Disqualified)
	assert.False(t, a.Disqualified)

	assert.ErrorIs(t, tbl.StartRound(nil), ErrTableFinished)
	assert.ErrorIs(t, tbl.PrepareNextRound(nil), ErrTableFinished)
	assert.ErrorIs(t, tbl.AddPlayer(&models.Player{ID: uuid.New()}), ErrTableFinished)
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()
	tbl := NewTable(models.TableConfig{}, uuid.New())

	store.Add(tbl)
	got, ok := store.Get(tbl.ID)
	require.True(t, ok)
	assert.Same(t, tbl, got)
	assert.Len(t, store.List(), 1)

	store.Delete(tbl.ID)
	_, ok = store.Get(tbl.ID)
	assert.False(t, ok)
	assert.Empty(t, store.List())
}
