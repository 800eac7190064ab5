package models

import "time"

// Question kinds.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionText           = "text"
)

// Test is a questionnaire administered to students.
type Test struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Question belongs to a test. CorrectAnswer is a string for multiple choice and
// text questions and a boolean for true/false questions.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer any      `json:"correctAnswer"`
}

// TestResult records one student's completed test.
type TestResult struct {
	ID          string    `json:"id" validate:"required"`
	TestID      string    `json:"testId"`
	StudentID   string    `json:"studentId"`
	Answers     []Answer  `json:"answers"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// Answer is a student's response to a single question.
type Answer struct {
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
	IsCorrect  bool   `json:"isCorrect"`
}
