// Package model defines shared data structures.
package model

import "time"

// Technician is a crew member from the remote roster.
type Technician struct {
	Name            string   `json:"name"`
	HourlyRate      *float64 `json:"hourly_rate,omitempty"`
	FixedRouteMiles *float64 `json:"fixed_route_miles,omitempty"`
}

// ClockSession is the open/closed clock state of the active technician.
// ClockInTime is non-nil iff ClockedIn is true.
type ClockSession struct {
	ClockedIn   bool       `json:"is_clocked_in"`
	ClockInTime *time.Time `json:"clock_in_time"`
}

// TimeEntry is one shift. ShiftID is a display key, not a primary key:
// a technician clocking in twice on one day yields the same ID.
type TimeEntry struct {
	ShiftID     string     `json:"shift_id"`
	Date        string     `json:"date"`
	ClockIn     time.Time  `json:"clock_in"`
	ClockOut    *time.Time `json:"clock_out"`
	HoursWorked *float64   `json:"hours_worked"`
}

// Open reports whether the shift has not been clocked out yet.
func (e TimeEntry) Open() bool {
	return e.ClockOut == nil
}

// MileageEntry is one mileage submission.
type MileageEntry struct {
	EntryID     string  `json:"entry_id"`
	Date        string  `json:"date"`
	Miles       float64 `json:"miles"`
	Description string  `json:"description"`
}

// History is the server's view of a technician's recent entries.
type History struct {
	TimeEntries    []TimeEntry    `json:"time_entries"`
	MileageEntries []MileageEntry `json:"mileage_entries"`
	WeekTotalHours *float64       `json:"week_total_hours"`
}

// Status is the remote clock status of a technician.
type Status struct {
	ClockedIn      bool       `json:"clocked_in"`
	ClockInTime    *time.Time `json:"clock_in_time,omitempty"`
	ElapsedMinutes *float64   `json:"elapsed_minutes,omitempty"`
}

// ClockAction names the clock transition sent to the remote endpoint.
type ClockAction string

// Clock actions.
const (
	ActionClockIn  ClockAction = "clock_in"
	ActionClockOut ClockAction = "clock_out"
)

// ActionResult is the uniform outcome of a mutating remote call.
type ActionResult struct {
	Success     bool     `json:"success"`
	ShiftID     string   `json:"shift_id,omitempty"`
	EntryID     string   `json:"entry_id,omitempty"`
	HoursWorked *float64 `json:"hours_worked,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// MileageRequest is the payload of a mileage submission.
type MileageRequest struct {
	TechName    string  `json:"tech_name"`
	Date        string  `json:"date"`
	Miles       float64 `json:"miles"`
	Description string  `json:"description"`
}

// EditRequest is the payload of an entry correction.
type EditRequest struct {
	TechName string `json:"tech_name"`
	ShiftID  string `json:"shift_id"`
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Reason   string `json:"reason"`
}

// Snapshot is the locally mirrored state of the active technician.
type Snapshot struct {
	Technician     string
	Clock          ClockSession
	TimeEntries    []TimeEntry
	MileageEntries []MileageEntry
}
