package dto

// AutoMarkSettingsRequest updates when unmarked teachers become absent.
type AutoMarkSettingsRequest struct {
	Hour    *int  `json:"hour" validate:"required,min=0,max=23"`
	Minute  *int  `json:"minute" validate:"required,min=0,max=59"`
	Enabled *bool `json:"enabled" validate:"required"`
}
