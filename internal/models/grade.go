package models

import "time"

// GradeRecord stores one subject score for a student in a semester. At most one
// record exists per (student, semester, subject).
type GradeRecord struct {
	ID        string    `json:"id" validate:"required"`
	StudentID string    `json:"studentId"`
	Semester  string    `json:"semester"`
	Subject   string    `json:"subject"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NaturalKey returns the (student, semester, subject) key for the grade.
func (g GradeRecord) NaturalKey() string {
	return GradeKey(g.StudentID, g.Semester, g.Subject)
}
