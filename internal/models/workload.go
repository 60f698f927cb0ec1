package models

import "time"

// WorkloadCounter stores substitution counts for a teacher within a window.
type WorkloadCounter struct {
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	WindowKey string    `db:"window_key" json:"window_key"`
	Count     int       `db:"count" json:"count"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WorkloadEntry is a counter joined with the teacher's name for reporting.
type WorkloadEntry struct {
	WorkloadCounter
	FullName string          `db:"full_name" json:"full_name"`
	Category TeacherCategory `db:"category" json:"category"`
}
