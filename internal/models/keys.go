package models

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NaturalKeyer is implemented by entities reconciled by a business key.
type NaturalKeyer interface {
	NaturalKey() string
}

// NormalizeKey trims and NFC-normalises a key component so visually identical
// Arabic or accented input maps to the same key.
func NormalizeKey(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// StudentKey builds the natural key of a student number.
func StudentKey(studentID string) string {
	return NormalizeKey(studentID)
}

// GradeKey builds the natural key of a grade triple.
func GradeKey(studentID, semester, subject string) string {
	studentID = NormalizeKey(studentID)
	semester = NormalizeKey(semester)
	subject = strings.ToLower(NormalizeKey(subject))
	if studentID == "" || semester == "" || subject == "" {
		return ""
	}
	return joinKey(studentID, semester, subject)
}

// joinKey length-prefixes each part so no component can spill into the next.
func joinKey(parts ...string) string {
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// UserKey builds the natural key of an email address.
func UserKey(email string) string {
	return strings.ToLower(NormalizeKey(email))
}
