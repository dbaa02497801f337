package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
)

var day = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute, duration int) appointment.Appointment {
	return appointment.Appointment{
		ID:              uuid.New(),
		StartTime:       day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute),
		DurationMinutes: duration,
	}
}

func TestLayoutProportionalOffsets(t *testing.T) {
	w := Window{StartHour: 8, EndHour: 18}
	blocks := Layout(w, day, []appointment.Appointment{at(9, 30, 45)})

	require.Len(t, blocks, 1)
	assert.Equal(t, 90.0, blocks[0].Offset)
	assert.Equal(t, 45.0, blocks[0].Height)
}

func TestLayoutCustomScale(t *testing.T) {
	w := Window{StartHour: 8, EndHour: 12, UnitsPerHour: 120, MinHeight: 10}
	blocks := Layout(w, day, []appointment.Appointment{at(10, 0, 30)})

	require.Len(t, blocks, 1)
	assert.Equal(t, 240.0, blocks[0].Offset)
	assert.Equal(t, 60.0, blocks[0].Height)
}

func TestLayoutClampsBlockStartingBeforeWindow(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	blocks := Layout(w, day, []appointment.Appointment{at(8, 30, 60)})

	require.Len(t, blocks, 1)
	assert.Equal(t, 0.0, blocks[0].Offset)
	assert.Equal(t, 30.0, blocks[0].Height)
}

func TestLayoutPinsBlockEndingAtWindowStart(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	blocks := Layout(w, day, []appointment.Appointment{at(8, 30, 30)})

	require.Len(t, blocks, 1)
	assert.Equal(t, 0.0, blocks[0].Offset)
	assert.GreaterOrEqual(t, blocks[0].Height, 0.0)
	assert.LessOrEqual(t, blocks[0].Height, w.Span())
	assert.Equal(t, DefaultMinHeight, blocks[0].Height)
}

func TestLayoutPinsEarlyMorningBlock(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	blocks := Layout(w, day, []appointment.Appointment{at(6, 0, 30)})

	require.Len(t, blocks, 1)
	assert.Equal(t, 0.0, blocks[0].Offset)
	assert.Equal(t, DefaultMinHeight, blocks[0].Height)
}

func TestLayoutClampsBlockRunningPastWindowEnd(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	blocks := Layout(w, day, []appointment.Appointment{at(16, 30, 90)})

	require.Len(t, blocks, 1)
	assert.Equal(t, 450.0, blocks[0].Offset)
	assert.Equal(t, 30.0, blocks[0].Height)
	assert.LessOrEqual(t, blocks[0].Offset+blocks[0].Height, w.Span())
}

func TestLayoutMinimumHeight(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	blocks := Layout(w, day, []appointment.Appointment{at(10, 0, 5)})

	require.Len(t, blocks, 1)
	assert.Equal(t, DefaultMinHeight, blocks[0].Height)
}

func TestLayoutMinimumHeightNeverExceedsWindow(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	blocks := Layout(w, day, []appointment.Appointment{at(16, 55, 5)})

	require.Len(t, blocks, 1)
	assert.Equal(t, 475.0, blocks[0].Offset)
	assert.Equal(t, 5.0, blocks[0].Height)
}

func TestLayoutSkipsOtherDaysAndAfterWindow(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	tomorrow := at(10, 0, 30)
	tomorrow.StartTime = tomorrow.StartTime.Add(24 * time.Hour)

	blocks := Layout(w, day, []appointment.Appointment{tomorrow, at(18, 0, 30), at(17, 0, 15)})
	assert.Empty(t, blocks)
}

func TestLayoutOverlappingAppointmentsKeepIndependentPositions(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	first := at(10, 0, 60)
	second := at(10, 30, 30)

	blocks := Layout(w, day, []appointment.Appointment{second, first})

	require.Len(t, blocks, 2)
	assert.Equal(t, first.ID, blocks[0].AppointmentID)
	assert.Equal(t, 60.0, blocks[0].Offset)
	assert.Equal(t, second.ID, blocks[1].AppointmentID)
	assert.Equal(t, 90.0, blocks[1].Offset)
}

func TestLayoutTiesOrderedByID(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 17}
	a := at(11, 0, 30)
	a.ID = uuid.MustParse("ffffffff-0000-0000-0000-000000000000")
	b := at(11, 0, 30)
	b.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000f")

	blocks := Layout(w, day, []appointment.Appointment{a, b})

	require.Len(t, blocks, 2)
	assert.Equal(t, b.ID, blocks[0].AppointmentID)
	assert.Equal(t, a.ID, blocks[1].AppointmentID)
}

func TestLayoutUsesDayLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	localDay := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	appt := appointment.Appointment{
		ID:              uuid.New(),
		StartTime:       time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC), // 09:00 local
		DurationMinutes: 30,
	}

	blocks := Layout(Window{StartHour: 8, EndHour: 18}, localDay, []appointment.Appointment{appt})

	require.Len(t, blocks, 1)
	assert.Equal(t, 60.0, blocks[0].Offset)
}

func TestLayoutInvalidWindow(t *testing.T) {
	assert.Nil(t, Layout(Window{StartHour: 10, EndHour: 10}, day, []appointment.Appointment{at(10, 0, 30)}))
}
