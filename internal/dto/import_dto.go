package dto

import "strings"

// StudentRow is one already-parsed spreadsheet row describing a student.
type StudentRow struct {
	StudentID     string `json:"studentId" validate:"required"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Level         string `json:"level" validate:"required"`
	Group         string `json:"group" validate:"required"`
	Gender        string `json:"gender"`
	BirthDate     string `json:"birthDate"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	GuardianName  string `json:"guardianName"`
	GuardianPhone string `json:"guardianPhone"`
	IsRepeating   *bool  `json:"isRepeating"`
	Notes         string `json:"notes"`
	HealthNotes   string `json:"healthNotes"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (r StudentRow) Trimmed() StudentRow {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Level = strings.TrimSpace(r.Level)
	r.Group = strings.TrimSpace(r.Group)
	r.Gender = strings.TrimSpace(r.Gender)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.GuardianName = strings.TrimSpace(r.GuardianName)
	r.GuardianPhone = strings.TrimSpace(r.GuardianPhone)
	r.Notes = strings.TrimSpace(r.Notes)
	r.HealthNotes = strings.TrimSpace(r.HealthNotes)
	return r
}

// GradeRow is one already-parsed spreadsheet row describing a subject score.
type GradeRow struct {
	StudentID string   `json:"studentId" validate:"required"`
	Semester  string   `json:"semester" validate:"required"`
	Subject   string   `json:"subject" validate:"required"`
	Score     *float64 `json:"score" validate:"required,min=0"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (r GradeRow) Trimmed() GradeRow {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.Semester = strings.TrimSpace(r.Semester)
	r.Subject = strings.TrimSpace(r.Subject)
	return r
}

// RowIssue explains why a row was skipped. Row is 1-based.
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportSummary aggregates the outcome of a bulk upsert.
type ImportSummary struct {
	Total   int        `json:"total"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Issues  []RowIssue `json:"issues"`
}

// Applied returns the number of rows written to the store.
func (s ImportSummary) Applied() int {
	return s.Created + s.Updated
}

// Skip records a skipped row.
func (s *ImportSummary) Skip(index int, reason string) {
	s.Skipped++
	s.Issues = append(s.Issues, RowIssue{Row: index + 1, Reason: reason})
}
