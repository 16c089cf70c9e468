package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTransition(t *testing.T, j *SQLite, id string, at time.Time, to string, activations int) {
	t.Helper()
	require.NoError(t, j.RecordTransition(TransitionRecord{
		ID:          id,
		At:          at,
		From:        "PRIMARY_ACTIVE",
		To:          to,
		Reason:      "test",
		Activations: activations,
	}))
}

func TestGetTransition(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	at := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	seedTransition(t, j, "T123", at, "FALLBACK_ACTIVE", 1)

	rec, err := j.GetTransition("T123")
	require.NoError(t, err)

	assert.Equal(t, "T123", rec.ID)
	assert.True(t, rec.At.Equal(at))
	assert.Equal(t, "PRIMARY_ACTIVE", rec.From)
	assert.Equal(t, "FALLBACK_ACTIVE", rec.To)
	assert.Equal(t, 1, rec.Activations)
}

func TestGetTransitionNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetTransition("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecentTransitionsNewestFirst(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seedTransition(t, j, "T1", base.Add(1*time.Hour), "FALLBACK_ACTIVE", 1)
	seedTransition(t, j, "T2", base.Add(2*time.Hour), "PRIMARY_ACTIVE", 1)
	seedTransition(t, j, "T3", base.Add(3*time.Hour), "FALLBACK_ACTIVE", 2)

	results, err := j.RecentTransitions(2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "T3", results[0].ID)
	assert.Equal(t, "T2", results[1].ID)
}

func TestListTransitionsBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seedTransition(t, j, "T1", base.Add(1*time.Hour), "FALLBACK_ACTIVE", 1)
	seedTransition(t, j, "T2", base.Add(5*time.Hour), "PRIMARY_ACTIVE", 1)
	seedTransition(t, j, "T3", base.Add(10*time.Hour), "FALLBACK_ACTIVE", 2)

	results, err := j.ListTransitionsBetween(base.Add(3*time.Hour), base.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Oldest first.
	assert.Equal(t, "T2", results[0].ID)
	assert.Equal(t, "T3", results[1].ID)
}

func TestListTransitionsBetweenBoundaries(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	seedTransition(t, j, "T1", at, "FALLBACK_ACTIVE", 1)

	// Start boundary is inclusive.
	results, err := j.ListTransitionsBetween(at, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// End boundary is exclusive.
	results, err = j.ListTransitionsBetween(at.Add(-time.Hour), at)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestListRejectionsBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, code := range []string{"PRICE_NOT_POSITIVE", "CIRCUIT_BREAKER", "VOLUME_NEGATIVE"} {
		require.NoError(t, j.RecordRejection(RejectionRecord{
			ID:     "R" + string(rune('1'+i)),
			At:     base.Add(time.Duration(i) * time.Hour),
			Source: "primary",
			Symbol: "AAPL",
			Code:   code,
			Detail: "test",
			Price:  150,
		}))
	}

	results, err := j.ListRejectionsBetween(base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "PRICE_NOT_POSITIVE", results[0].Code)
	assert.Equal(t, "CIRCUIT_BREAKER", results[1].Code)
}
