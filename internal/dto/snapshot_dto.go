package dto

import "github.com/noah-isme/counsel-vault/internal/models"

// SnapshotReport counts what an import or export carried.
type SnapshotReport struct {
	Students    int  `json:"students"`
	Users       int  `json:"users"`
	Tests       int  `json:"tests"`
	TestResults int  `json:"testResults"`
	Grades      int  `json:"grades"`
	Settings    bool `json:"settings"`
}

// NewSnapshotReport summarises a snapshot document.
func NewSnapshotReport(snapshot models.Snapshot) SnapshotReport {
	return SnapshotReport{
		Students:    len(snapshot.Students),
		Users:       len(snapshot.Users),
		Tests:       len(snapshot.Tests),
		TestResults: len(snapshot.TestResults),
		Grades:      len(snapshot.Grades),
		Settings:    snapshot.Settings != nil,
	}
}

// Total returns the number of entities in the report.
func (r SnapshotReport) Total() int {
	return r.Students + r.Users + r.Tests + r.TestResults + r.Grades
}
