package freeweeks

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/db"
)

const dateLayout = "2006-01-02"

// Slot is a candidate 7-night Saturday-to-Saturday rental window used to
// probe pricing. Dates are yyyy-MM-dd strings, checkout exclusive of the
// following week's slot.
type Slot struct {
	CheckIn  string
	CheckOut string
}

// ComputeFreeWeeks derives the candidate free weekly slots for a boat in the
// target year. When year is the current calendar year the generation is
// anchored at now, so already-elapsed weeks are not probed; otherwise it is
// anchored at January 1st.
//
// One candidate is generated per Saturday from the first Saturday on or after
// the anchor, capped at the year's ISO week count. A candidate survives only
// if no reservation overlaps it under the inclusive-bounds test
// (res.checkIn <= slot.checkOut && res.checkOut >= slot.checkIn).
func ComputeFreeWeeks(reservations []db.ReservedInterval, year int, now time.Time) []Slot {
	anchor := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	if year == now.Year() {
		anchor = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	saturdays := saturdaysOfYear(anchor, year)

	free := make([]Slot, 0, len(saturdays))
	for _, sat := range saturdays {
		slot := Slot{
			CheckIn:  sat.Format(dateLayout),
			CheckOut: sat.AddDate(0, 0, 7).Format(dateLayout),
		}
		if !overlapsAny(slot, reservations) {
			free = append(free, slot)
		}
	}
	return free
}

// saturdaysOfYear lists every Saturday from the first one on or after anchor
// through the end of the year, capped at the year's ISO week count.
func saturdaysOfYear(anchor time.Time, year int) []time.Time {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.SA},
		Dtstart:   anchor,
		Until:     time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC),
	})
	if err != nil {
		// The options are fixed; the rule cannot fail to parse.
		return nil
	}

	all := rule.All()
	if max := isoWeekCount(year); len(all) > max {
		all = all[:max]
	}
	return all
}

// isoWeekCount reports how many ISO weeks the year has (52 or 53).
// December 28th always falls in the year's last ISO week.
func isoWeekCount(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// overlapsAny reports whether any reservation intersects the slot. Bounds are
// inclusive on both sides: a reservation checking out on the slot's check-in
// day still counts as an overlap.
func overlapsAny(slot Slot, reservations []db.ReservedInterval) bool {
	slotIn, err := time.Parse(dateLayout, slot.CheckIn)
	if err != nil {
		return false
	}
	slotOut, err := time.Parse(dateLayout, slot.CheckOut)
	if err != nil {
		return false
	}

	for _, res := range reservations {
		resIn, err := time.Parse(dateLayout, res.CheckIn)
		if err != nil {
			continue
		}
		resOut, err := time.Parse(dateLayout, res.CheckOut)
		if err != nil {
			continue
		}
		if !resIn.After(slotOut) && !resOut.Before(slotIn) {
			return true
		}
	}
	return false
}

// QuoteBelongsToYear reports whether a quote for slot should be recorded in
// the given year's table. A slot straddling a year boundary can belong to two
// consecutive years. The three conditions are kept exactly as the pricing
// pipeline has always evaluated them, including the literal same-year case;
// collapsing them shifts which table receives quotes around the
// December/January transition.
func QuoteBelongsToYear(slot Slot, year int) bool {
	checkIn, err := time.Parse(dateLayout, slot.CheckIn)
	if err != nil {
		return false
	}
	checkOut, err := time.Parse(dateLayout, slot.CheckOut)
	if err != nil {
		return false
	}

	chinYear := checkIn.Year()
	choutYear := checkOut.Year()

	switch {
	case chinYear < year && year <= choutYear:
		return true
	case chinYear == year && choutYear == year:
		return true
	case chinYear == year && year < choutYear:
		return true
	}
	return false
}

// WeekOfCheckout returns the ISO week key a quote is indexed under. The week
// is always computed from the checkout date, not the check-in.
func WeekOfCheckout(slot Slot) (db.WeekKey, error) {
	checkOut, err := time.Parse(dateLayout, slot.CheckOut)
	if err != nil {
		return 0, err
	}
	_, week := checkOut.ISOWeek()
	return db.NewWeekKey(week)
}
