package workflow

import (
	"context"
	"iter"
	"time"

	"github.com/fernandocuesta/ptp-pax/internal/pax/entity"
)

// OccupancyReader reports how many seats are already committed for a site and
// entry date. The engine re-reads occupancy at decision time through this
// interface so the count is as fresh as the store allows.
type OccupancyReader interface {
	Occupied(ctx context.Context, site string, date time.Time) (int, error)
}

// Calculator computes seat occupancy over an in-memory snapshot of records.
type Calculator struct {
	maxCapacity  int
	capacityGate string
}

// NewCalculator builds a calculator for a per-site, per-day seat ceiling and
// the gate whose approvals consume seats.
func NewCalculator(maxCapacity int, capacityGateID string) *Calculator {
	return &Calculator{maxCapacity: maxCapacity, capacityGate: capacityGateID}
}

// MaxCapacity returns the per-day, per-site seat ceiling.
func (c *Calculator) MaxCapacity() int {
	return c.maxCapacity
}

// Occupied counts the records whose capacity-gated stage is approved for the
// given site and calendar entry date.
func (c *Calculator) Occupied(records []entity.Solicitud, site string, date time.Time) int {
	n := 0
	for i := range records {
		r := &records[i]
		if r.Site != site || !sameDay(r.EntryDate, date) {
			continue
		}
		if st := r.StageFor(c.capacityGate); st != nil && st.Status == entity.StageStatusApproved {
			n++
		}
	}
	return n
}

// Available returns the remaining seats, floored at zero. A race on the
// external store can transiently drive occupancy past the ceiling; reporting
// never goes negative.
func (c *Calculator) Available(records []entity.Solicitud, site string, date time.Time) int {
	if avail := c.maxCapacity - c.Occupied(records, site, date); avail > 0 {
		return avail
	}
	return 0
}

// OpenDate is one selectable entry date with its remaining seats.
type OpenDate struct {
	Date      time.Time `json:"date"`
	Available int       `json:"available"`
}

// OpenDates yields the dates in [from, from+horizonDays] that still have
// seats, ascending. The sequence is lazy and restartable; it is advisory
// only — a seat shown open here may be gone by the time the record reaches
// the capacity gate.
func (c *Calculator) OpenDates(records []entity.Solicitud, site string, from time.Time, horizonDays int) iter.Seq[OpenDate] {
	return func(yield func(OpenDate) bool) {
		day := truncateDay(from)
		for i := 0; i <= horizonDays; i++ {
			if avail := c.Available(records, site, day); avail > 0 {
				if !yield(OpenDate{Date: day, Available: avail}) {
					return
				}
			}
			day = day.AddDate(0, 0, 1)
		}
	}
}

// Snapshot adapts the calculator to the OccupancyReader contract over a fixed
// record set.
func (c *Calculator) Snapshot(records []entity.Solicitud) OccupancyReader {
	return snapshotOccupancy{calc: c, records: records}
}

type snapshotOccupancy struct {
	calc    *Calculator
	records []entity.Solicitud
}

func (s snapshotOccupancy) Occupied(_ context.Context, site string, date time.Time) (int, error) {
	return s.calc.Occupied(s.records, site, date), nil
}

// sameDay compares calendar dates, ignoring any time-of-day component.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
