// Package timeline places one day of appointments onto a vertical day view.
//
// Blocks are positioned independently. Overlapping appointments overlap visually; there is no
// column splitting.
package timeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
)

const (
	DefaultUnitsPerHour = 60.0
	DefaultMinHeight    = 15.0
)

// Window is the visible part of the day, in whole hours of the day's location.
type Window struct {
	StartHour    int
	EndHour      int
	UnitsPerHour float64
	MinHeight    float64
}

type Block struct {
	AppointmentID uuid.UUID
	Start         time.Time
	End           time.Time
	Offset        float64
	Height        float64
}

func (w Window) withDefaults() Window {
	if w.UnitsPerHour <= 0 {
		w.UnitsPerHour = DefaultUnitsPerHour
	}
	if w.MinHeight <= 0 {
		w.MinHeight = DefaultMinHeight
	}
	return w
}

// Span is the window height in layout units.
func (w Window) Span() float64 {
	w = w.withDefaults()
	if w.EndHour <= w.StartHour {
		return 0
	}
	return float64(w.EndHour-w.StartHour) * w.UnitsPerHour
}

// Layout computes a block per appointment starting on day's calendar date before the window end.
// Offsets never go below zero and no block extends past the window end; heights are floored at
// MinHeight within that limit, so an appointment over before the window opens sits at offset 0.
// Blocks come back ascending by start, ties by id.
func Layout(w Window, day time.Time, appts []appointment.Appointment) []Block {
	w = w.withDefaults()
	span := w.Span()
	if span == 0 {
		return nil
	}

	loc := day.Location()
	y, m, d := day.Date()
	windowStart := time.Date(y, m, d, w.StartHour, 0, 0, 0, loc)
	windowEnd := time.Date(y, m, d, w.EndHour, 0, 0, 0, loc)
	unitsPerMinute := w.UnitsPerHour / 60

	sorted := make([]appointment.Appointment, len(appts))
	copy(sorted, appts)
	appointment.SortByStart(sorted)

	blocks := make([]Block, 0, len(sorted))
	for _, a := range sorted {
		start := a.StartTime.In(loc)
		if ay, am, ad := start.Date(); ay != y || am != m || ad != d {
			continue
		}
		end := start.Add(a.Duration())

		if !start.Before(windowEnd) {
			continue
		}

		visibleStart := start
		if visibleStart.Before(windowStart) {
			visibleStart = windowStart
		}
		visibleEnd := end
		if visibleEnd.After(windowEnd) {
			visibleEnd = windowEnd
		}
		// ended before the window opened: pinned to the top at the minimum height
		if visibleEnd.Before(visibleStart) {
			visibleEnd = visibleStart
		}

		offset := visibleStart.Sub(windowStart).Minutes() * unitsPerMinute
		height := visibleEnd.Sub(visibleStart).Minutes() * unitsPerMinute
		if height < w.MinHeight {
			height = w.MinHeight
		}
		if offset+height > span {
			height = span - offset
		}

		blocks = append(blocks, Block{
			AppointmentID: a.ID,
			Start:         start,
			End:           end,
			Offset:        offset,
			Height:        height,
		})
	}

	return blocks
}
