package models

import "time"

// AutoMarkSettings controls when unmarked teachers are considered absent.
type AutoMarkSettings struct {
	Hour      int       `db:"hour" json:"hour"`
	Minute    int       `db:"minute" json:"minute"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Suspension disables automatic arrangements for a date.
type Suspension struct {
	Date      time.Time `db:"date" json:"date"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
