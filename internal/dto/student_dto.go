package dto

import (
	"time"

	"github.com/noah-isme/counsel-vault/internal/models"
)

// StudentRequest creates or edits a student from the record screens.
type StudentRequest struct {
	StudentID     *string `json:"studentId" validate:"omitempty,min=1,max=64"`
	FirstName     *string `json:"firstName" validate:"omitempty,min=1,max=128"`
	LastName      *string `json:"lastName" validate:"omitempty,min=1,max=128"`
	Level         *string `json:"level" validate:"omitempty,max=64"`
	Group         *string `json:"group" validate:"omitempty,max=64"`
	Gender        *string `json:"gender" validate:"omitempty,max=16"`
	BirthDate     *string `json:"birthDate" validate:"omitempty,max=32"`
	Phone         *string `json:"phone" validate:"omitempty,max=32"`
	Address       *string `json:"address" validate:"omitempty,max=512"`
	GuardianName  *string `json:"guardianName" validate:"omitempty,max=128"`
	GuardianPhone *string `json:"guardianPhone" validate:"omitempty,max=32"`
	IsRepeating   *bool   `json:"isRepeating"`
	Notes         *string `json:"notes"`
	HealthNotes   *string `json:"healthNotes"`
}

// StudentListRequest filters the student list.
type StudentListRequest struct {
	Search   string
	Level    string
	Group    string
	Page     int
	PageSize int
}

// PaginationMeta describes paging information for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// StudentResponse is the API representation of a student.
type StudentResponse struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"studentId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	FullName       string     `json:"fullName"`
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

// NewStudentResponse maps a student model to its API representation.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:             student.ID,
		StudentID:      student.StudentID,
		FirstName:      student.FirstName,
		LastName:       student.LastName,
		FullName:       student.FullName(),
		Level:          student.Level,
		Group:          student.Group,
		Gender:         student.Gender,
		BirthDate:      student.BirthDate,
		EnrollmentDate: student.EnrollmentDate,
		Phone:          student.Phone,
		Address:        student.Address,
		GuardianName:   student.GuardianName,
		GuardianPhone:  student.GuardianPhone,
		IsRepeating:    student.IsRepeating,
		Notes:          student.Notes,
		HealthNotes:    student.HealthNotes,
		LastTestTitle:  student.LastTestTitle,
		LastTestScore:  student.LastTestScore,
		LastTestDate:   student.LastTestDate,
		CreatedAt:      student.CreatedAt,
		UpdatedAt:      student.UpdatedAt,
	}
}

// StudentListResponse wraps a page of students.
type StudentListResponse struct {
	Items      []StudentResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}
