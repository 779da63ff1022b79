package models

import "time"

// UserType distinguishes learners from the adults who manage them.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeParent  UserType = "parent"
	UserTypeTeacher UserType = "teacher"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeStudent, UserTypeParent, UserTypeTeacher:
		return true
	}
	return false
}

// UserProfile is the public-facing account record. ID equals the User ID.
type UserProfile struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	UserType   UserType  `json:"user_type"`
	GradeLevel *int      `json:"grade_level,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	FullName   *string `json:"full_name,omitempty"`
	GradeLevel *int    `json:"grade_level,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

// ParentStudentLink lets a parent or teacher follow a student's progress.
type ParentStudentLink struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}
