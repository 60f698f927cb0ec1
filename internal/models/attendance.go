package models

import "time"

// AttendanceStatus represents a teacher's daily presence.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// TeacherAttendance is one attendance mark per teacher per day.
type TeacherAttendance struct {
	ID        string           `db:"id" json:"id"`
	TeacherID string           `db:"teacher_id" json:"teacher_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	IsAuto    bool             `db:"is_auto" json:"is_auto"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
}

// TeacherAttendanceRecord joins attendance with the teacher's name.
type TeacherAttendanceRecord struct {
	TeacherAttendance
	FullName string          `db:"full_name" json:"full_name"`
	Category TeacherCategory `db:"category" json:"category"`
}

// MarkAttendanceResult bundles the stored mark with any planning outcome.
type MarkAttendanceResult struct {
	Attendance TeacherAttendance `json:"attendance"`
	Plan       *PlanResult       `json:"plan,omitempty"`
	Queued     bool              `json:"queued"`
}
