package models

// Snapshot is the whole-database document used for export, import, and
// automatic backups. A nil slice marks a collection absent from the document.
type Snapshot struct {
	Students    []Student     `json:"students" validate:"omitempty,dive"`
	Users       []User        `json:"users" validate:"omitempty,dive"`
	Settings    *AppSettings  `json:"settings"`
	Tests       []Test        `json:"tests" validate:"omitempty,dive"`
	TestResults []TestResult  `json:"testResults" validate:"omitempty,dive"`
	Grades      []GradeRecord `json:"grades" validate:"omitempty,dive"`
}

// RecordCount sums the entities carried by the snapshot.
func (s Snapshot) RecordCount() int {
	return len(s.Students) + len(s.Users) + len(s.Tests) + len(s.TestResults) + len(s.Grades)
}
