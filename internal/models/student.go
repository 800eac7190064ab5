package models

import "time"

// Student is a learner followed by the counselor. StudentID is the school-issued
// number used to reconcile spreadsheet imports; ID is generated by the store.
type Student struct {
	ID             string     `json:"id" validate:"required"`
	StudentID      string     `json:"studentId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Level          string     `json:"level"`
	Group          string     `json:"group"`
	Gender         string     `json:"gender"`
	BirthDate      string     `json:"birthDate"`
	EnrollmentDate string     `json:"enrollmentDate"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	GuardianName   string     `json:"guardianName"`
	GuardianPhone  string     `json:"guardianPhone"`
	IsRepeating    bool       `json:"isRepeating"`
	Notes          string     `json:"notes"`
	HealthNotes    string     `json:"healthNotes"`
	LastTestTitle  string     `json:"lastTestTitle,omitempty"`
	LastTestScore  *float64   `json:"lastTestScore,omitempty"`
	LastTestDate   *time.Time `json:"lastTestDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NaturalKey returns the reconciliation key for the student.
func (s Student) NaturalKey() string {
	return StudentKey(s.StudentID)
}

// FullName joins the first and last names.
func (s Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	default:
		return s.FirstName + " " + s.LastName
	}
}
