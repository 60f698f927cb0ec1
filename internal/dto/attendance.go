package dto

// MarkAttendanceRequest records a teacher's attendance for a day.
type MarkAttendanceRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,oneof=PRESENT ABSENT present absent"`
}
