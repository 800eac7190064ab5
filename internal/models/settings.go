package models

// AppSettings is the singleton configuration record of the school.
type AppSettings struct {
	SchoolName       string          `json:"schoolName"`
	CounselorName    string          `json:"counselorName"`
	Levels           []string        `json:"levels"`
	Groups           []string        `json:"groups"`
	Semesters        []string        `json:"semesters"`
	Timezone         string          `json:"timezone"`
	Sections         map[string]bool `json:"sections"`
	SecurityQuestion string          `json:"securityQuestion,omitempty"`
	SecurityAnswer   string          `json:"securityAnswer,omitempty"`
}

// Semester names shipped with the default settings.
const (
	SemesterFirst  = "الفصل الأول"
	SemesterSecond = "الفصل الثاني"
	SemesterThird  = "الفصل الثالث"
)

// DefaultSettings returns the compiled-in settings written on first use.
func DefaultSettings() AppSettings {
	return AppSettings{
		SchoolName:    "",
		CounselorName: "",
		Levels:        []string{"السنة الأولى", "السنة الثانية", "السنة الثالثة", "السنة الرابعة"},
		Groups:        []string{"1", "2", "3", "4", "5"},
		Semesters:     []string{SemesterFirst, SemesterSecond, SemesterThird},
		Timezone:      "Africa/Algiers",
		Sections: map[string]bool{
			"students": true,
			"tests":    true,
			"grades":   true,
			"reports":  true,
		},
	}
}

// HasSemester reports whether name is one of the configured semesters.
func (s AppSettings) HasSemester(name string) bool {
	for _, semester := range s.Semesters {
		if NormalizeKey(semester) == NormalizeKey(name) {
			return true
		}
	}
	return false
}
