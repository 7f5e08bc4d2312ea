package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
)

func TestDetails_ApplyDefaults(t *testing.T) {
	now := time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC)

	d := Details{}
	d.ApplyDefaults(now)
	assert.Equal(t, 2, d.PartySize)
	assert.Equal(t, "19:00", d.Time)
	assert.Equal(t, "2026-08-28", d.Date)

	d = Details{PartySize: 6, Time: "18:30", Date: "2026-09-01"}
	d.ApplyDefaults(now)
	assert.Equal(t, 6, d.PartySize)
	assert.Equal(t, "18:30", d.Time)
	assert.Equal(t, "2026-09-01", d.Date)
}

func TestBook_SlotLimit(t *testing.T) {
	book := NewBook(t.TempDir(), "restaurant_001", 2, logger.NewNoOpLogger())
	ctx := context.Background()
	slot := Details{Date: "2026-09-01", Time: "19:00", PartySize: 2}

	for i := 0; i < 2; i++ {
		res, err := book.Create(ctx, slot)
		require.NoError(t, err)
		assert.Equal(t, "confirmed", res.Status)
	}

	ok, err := book.Available("2026-09-01", "19:00")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = book.Create(ctx, slot)
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeReservationUnavailable, stdErr.Code)

	// A different time the same day is untouched.
	ok, err = book.Available("2026-09-01", "20:00")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBook_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := NewBook(dir, "restaurant_001", 5, logger.NewNoOpLogger())
	_, err := first.Create(ctx, Details{Name: "Sam", Date: "2026-09-01", Time: "19:00", PartySize: 4})
	require.NoError(t, err)

	second := NewBook(dir, "restaurant_001", 5, logger.NewNoOpLogger())
	all, err := second.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Sam", all[0].Name)
	assert.Equal(t, 4, all[0].PartySize)
	assert.Equal(t, "restaurant_001", all[0].BusinessID)
}

func TestBook_MissingFileIsEmpty(t *testing.T) {
	book := NewBook(t.TempDir(), "restaurant_001", 5, logger.NewNoOpLogger())
	all, err := book.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	ok, err := book.Available("2026-09-01", "19:00")
	require.NoError(t, err)
	assert.True(t, ok)
}
