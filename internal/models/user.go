package models

import (
	"time"

	"github.com/examflow/editorial/internal/workflow"
)

// Role represents user role in the pipeline.
type Role = workflow.Role

const (
	RoleAdmin      = workflow.RoleAdmin
	RoleAuthor     = workflow.RoleAuthor
	RoleTypesetter = workflow.RoleTypesetter
	RoleReviewer   = workflow.RoleReviewer
)

// User represents a pipeline user.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Password         string    `json:"-"`
	FullName         string    `json:"full_name"`
	Role             Role      `json:"role"`
	FieldReviewer    bool      `json:"field_reviewer"`
	LanguageReviewer bool      `json:"language_reviewer"`
	TeamID           *int64    `json:"team_id,omitempty"`
	Active           bool      `json:"active"`
	SubjectIDs       []int64   `json:"subject_ids"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	Role             Role      `json:"role"`
	FieldReviewer    bool      `json:"field_reviewer"`
	LanguageReviewer bool      `json:"language_reviewer"`
	SubjectIDs       []int64   `json:"subject_ids"`
	CreatedAt        time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:               u.ID,
		Email:            u.Email,
		FullName:         u.FullName,
		Role:             u.Role,
		FieldReviewer:    u.FieldReviewer,
		LanguageReviewer: u.LanguageReviewer,
		SubjectIDs:       u.SubjectIDs,
		CreatedAt:        u.CreatedAt,
	}
}

// Actor is the caller identity every lifecycle operation receives. It is trusted as given.
type Actor struct {
	ID               int64
	Role             Role
	FieldReviewer    bool
	LanguageReviewer bool
	SubjectIDs       []int64
}

// IsAdmin reports whether the actor bypasses workflow rules.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// HasSubject reports whether the actor may work on questions in subjectID.
func (a Actor) HasSubject(subjectID int64) bool {
	for _, id := range a.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// ActorFor builds the actor for a stored user.
func ActorFor(u *User) Actor {
	return Actor{
		ID:               u.ID,
		Role:             u.Role,
		FieldReviewer:    u.FieldReviewer,
		LanguageReviewer: u.LanguageReviewer,
		SubjectIDs:       u.SubjectIDs,
	}
}
