package dto

// UpsertDayScheduleRequest replaces a teacher's timetable for one weekday.
type UpsertDayScheduleRequest struct {
	Periods []string `json:"periods" validate:"required,min=1,max=7,dive,max=100"`
}
