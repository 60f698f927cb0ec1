package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens issued by the school
// identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	// TeacherID links a TEACHER account to its directory entry.
	TeacherID string `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}
