package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/domain/inventory"
)

func TestCalendar_TodayUsaDiaCivilLocal(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	// 02:00 UTC del 19 de octubre son las 21:00 del 18 en Bogotá
	now := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)
	cal := inventory.NewCalendar(bogota, func() time.Time { return now })

	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), cal.Today())
}

func TestCalendar_DaysUntil(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	cal := inventory.NewCalendar(time.UTC, func() time.Time { return now })

	assert.Equal(t, 7, cal.DaysUntil(time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, cal.DaysUntil(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, cal.DaysUntil(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)))
}

func TestCalendar_IsToday(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	cal := inventory.NewCalendar(time.UTC, func() time.Time { return now })
	today := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	assert.True(t, cal.IsToday(&today))
	assert.False(t, cal.IsToday(&tomorrow))
	assert.False(t, cal.IsToday(nil))
}

func TestParseDate(t *testing.T) {
	d, err := inventory.ParseDate("2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), d)

	_, err = inventory.ParseDate("18/10/2026")
	assert.Error(t, err)
}
