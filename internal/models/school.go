package models

import "time"

// SchoolDetails describes where a student studies. One row per user.
type SchoolDetails struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	SchoolName string    `json:"school_name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Syllabus   string    `json:"syllabus"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
