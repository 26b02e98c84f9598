// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-elect/models"
)

func TestBuildPool(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	born := func(year int) *time.Time {
		d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &d
	}
	joined := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

	cfg := models.ElectionConfig{
		Positions: models.PositionList{"Elder", "Teen Leader"},
		Criteria: models.Criteria{
			Tithing: models.RecurrenceCriterion{Enabled: true},
		},
		RemovedCandidates: models.MemberIDs{1},
	}
	members := []models.Member{
		{ID: 1, Name: "Adult tither", TitheCategory: models.RecurrenceRecurring, BirthDate: born(1970), JoinedAt: &joined, AttendancePercent: 80},
		{ID: 2, Name: "Adult non tither", BirthDate: born(1980)},
		{ID: 3, Name: "Teen", BirthDate: born(2013)},
	}

	pool := BuildPool(cfg, members, now)

	require.Len(t, pool, 2)
	assert.Equal(t, "Elder", pool[0].PositionName)
	assert.Equal(t, int64(1), pool[0].ID)
	assert.True(t, pool[0].TitherRecurring)
	assert.False(t, pool[0].DonorRecurring)
	assert.Equal(t, 72, pool[0].MonthsInChurch)
	assert.Equal(t, 80.0, pool[0].AttendancePercent)
	assert.Equal(t, models.PhaseNomination, pool[0].Phase)

	assert.Equal(t, "Teen Leader", pool[1].PositionName)
	assert.Equal(t, 1, pool[1].PositionIndex)
	assert.Equal(t, int64(3), pool[1].ID)

	assert.Equal(t, map[string]int{"Elder": 1, "Teen Leader": 1}, PoolSizes(cfg, pool))
}

func TestPoolSizes_EmptyPositions(t *testing.T) {
	cfg := models.ElectionConfig{Positions: models.PositionList{"Elder", "Deacon"}}
	assert.Equal(t, map[string]int{"Elder": 0, "Deacon": 0}, PoolSizes(cfg, nil))
}
