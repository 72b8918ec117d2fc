package freeweeks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeFreeWeeks_FullYearNoReservations(t *testing.T) {
	slots := ComputeFreeWeeks(nil, 2025, date(2025, time.January, 1))

	// 2025 has 52 ISO weeks; the first Saturday is January 4th.
	require.Len(t, slots, 52)
	assert.Equal(t, "2025-01-04", slots[0].CheckIn)
	assert.Equal(t, "2025-01-11", slots[0].CheckOut)
	assert.Equal(t, "2025-12-27", slots[51].CheckIn)
	assert.Equal(t, "2026-01-03", slots[51].CheckOut)
}

func TestComputeFreeWeeks_SlotShape(t *testing.T) {
	slots := ComputeFreeWeeks(nil, 2025, date(2025, time.January, 1))
	require.NotEmpty(t, slots)

	for _, slot := range slots {
		checkIn, err := time.Parse("2006-01-02", slot.CheckIn)
		require.NoError(t, err)
		checkOut, err := time.Parse("2006-01-02", slot.CheckOut)
		require.NoError(t, err)

		assert.Equal(t, time.Saturday, checkIn.Weekday(), "slot %s must start on Saturday", slot.CheckIn)
		assert.Equal(t, 7*24*time.Hour, checkOut.Sub(checkIn), "slot %s must span exactly 7 days", slot.CheckIn)
	}
}

func TestComputeFreeWeeks_CurrentYearAnchorsAtNow(t *testing.T) {
	now := date(2025, time.November, 1) // a Saturday
	slots := ComputeFreeWeeks(nil, 2025, now)

	// November 1st through December 27th: 9 Saturdays remain.
	require.Len(t, slots, 9)
	assert.Equal(t, "2025-11-01", slots[0].CheckIn)
	assert.Equal(t, "2025-12-27", slots[8].CheckIn)
}

func TestComputeFreeWeeks_OtherYearAnchorsAtJanuaryFirst(t *testing.T) {
	slots := ComputeFreeWeeks(nil, 2026, date(2025, time.June, 15))

	// 2026 carries 52 Saturdays, the first being January 3rd.
	require.Len(t, slots, 52)
	assert.Equal(t, "2026-01-03", slots[0].CheckIn)
}

func TestComputeFreeWeeks_ExcludesReservedWeeks(t *testing.T) {
	reservations := []db.ReservedInterval{
		{CheckIn: "2025-06-07", CheckOut: "2025-06-14"},
	}

	slots := ComputeFreeWeeks(reservations, 2025, date(2025, time.January, 1))

	// The reserved week is dropped, along with its two neighbours that touch
	// the reservation on a boundary day under the inclusive overlap test.
	require.Len(t, slots, 49)
	for _, slot := range slots {
		assert.NotEqual(t, "2025-05-31", slot.CheckIn)
		assert.NotEqual(t, "2025-06-07", slot.CheckIn)
		assert.NotEqual(t, "2025-06-14", slot.CheckIn)
	}
}

func TestComputeFreeWeeks_NoSlotOverlapsReservations(t *testing.T) {
	reservations := []db.ReservedInterval{
		{CheckIn: "2025-03-10", CheckOut: "2025-03-25"},
		{CheckIn: "2025-08-02", CheckOut: "2025-08-09"},
		{CheckIn: "2025-12-20", CheckOut: "2026-01-05"},
	}

	slots := ComputeFreeWeeks(reservations, 2025, date(2025, time.January, 1))
	require.NotEmpty(t, slots)

	for _, slot := range slots {
		slotIn, _ := time.Parse("2006-01-02", slot.CheckIn)
		slotOut, _ := time.Parse("2006-01-02", slot.CheckOut)
		for _, res := range reservations {
			resIn, _ := time.Parse("2006-01-02", res.CheckIn)
			resOut, _ := time.Parse("2006-01-02", res.CheckOut)
			overlaps := !resIn.After(slotOut) && !resOut.Before(slotIn)
			assert.False(t, overlaps, "slot %s..%s overlaps reservation %s..%s",
				slot.CheckIn, slot.CheckOut, res.CheckIn, res.CheckOut)
		}
	}
}

func TestComputeFreeWeeks_FullyBookedYear(t *testing.T) {
	reservations := []db.ReservedInterval{
		{CheckIn: "2025-01-01", CheckOut: "2026-01-05"},
	}

	slots := ComputeFreeWeeks(reservations, 2025, date(2025, time.January, 1))
	assert.Empty(t, slots)
}

func TestQuoteBelongsToYear(t *testing.T) {
	tests := []struct {
		name string
		slot Slot
		year int
		want bool
	}{
		{
			name: "same year",
			slot: Slot{CheckIn: "2025-06-07", CheckOut: "2025-06-14"},
			year: 2025,
			want: true,
		},
		{
			name: "same year slot, other year",
			slot: Slot{CheckIn: "2025-06-07", CheckOut: "2025-06-14"},
			year: 2026,
			want: false,
		},
		{
			name: "crosses into next year, attributed to checkin year",
			slot: Slot{CheckIn: "2025-12-27", CheckOut: "2026-01-03"},
			year: 2025,
			want: true,
		},
		{
			name: "crosses into next year, attributed to checkout year too",
			slot: Slot{CheckIn: "2025-12-27", CheckOut: "2026-01-03"},
			year: 2026,
			want: true,
		},
		{
			name: "starts previous year, target beyond checkout",
			slot: Slot{CheckIn: "2025-12-27", CheckOut: "2026-01-03"},
			year: 2027,
			want: false,
		},
		{
			name: "target before checkin year",
			slot: Slot{CheckIn: "2025-12-27", CheckOut: "2026-01-03"},
			year: 2024,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteBelongsToYear(tt.slot, tt.year))
		})
	}
}

func TestWeekOfCheckout(t *testing.T) {
	// January 11th 2025 falls in ISO week 2.
	week, err := WeekOfCheckout(Slot{CheckIn: "2025-01-04", CheckOut: "2025-01-11"})
	require.NoError(t, err)
	assert.Equal(t, db.WeekKey(2), week)

	// A year-straddling slot is keyed by its checkout date's ISO week.
	week, err = WeekOfCheckout(Slot{CheckIn: "2025-12-27", CheckOut: "2026-01-03"})
	require.NoError(t, err)
	assert.Equal(t, db.WeekKey(1), week)

	_, err = WeekOfCheckout(Slot{CheckIn: "2025-01-04", CheckOut: "not-a-date"})
	assert.Error(t, err)
}
