package dto

// PlanArrangementRequest triggers automatic planning for one absence.
type PlanArrangementRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ManualArrangementRequest assigns a substitute by hand.
type ManualArrangementRequest struct {
	AbsentTeacherID      string `json:"absent_teacher_id" validate:"required"`
	ReplacementTeacherID string `json:"replacement_teacher_id" validate:"required,nefield=AbsentTeacherID"`
	Period               int    `json:"period" validate:"required,min=1,max=7"`
	ClassLabel           string `json:"class_label" validate:"omitempty,max=100"`
	Date                 string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ReplacementQuery asks who would cover a single period.
type ReplacementQuery struct {
	TeacherID string `form:"teacher_id" validate:"required"`
	Date      string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Period    int    `form:"period" validate:"required,min=1,max=7"`
	Preview   bool   `form:"preview"`
}
