package dto

import "github.com/noah-isme/counsel-vault/internal/models"

// SettingsPatch carries a partial settings update. Nil fields are left untouched;
// supplied fields replace the stored value as a whole.
type SettingsPatch struct {
	SchoolName       *string         `json:"schoolName" validate:"omitempty,max=255"`
	CounselorName    *string         `json:"counselorName" validate:"omitempty,max=255"`
	Levels           []string        `json:"levels" validate:"omitempty,dive,required"`
	Groups           []string        `json:"groups" validate:"omitempty,dive,required"`
	Semesters        []string        `json:"semesters" validate:"omitempty,dive,required"`
	Timezone         *string         `json:"timezone" validate:"omitempty,timezone"`
	Sections         map[string]bool `json:"sections"`
	SecurityQuestion *string         `json:"securityQuestion" validate:"omitempty,max=512"`
	SecurityAnswer   *string         `json:"securityAnswer" validate:"omitempty,max=512"`
}

// Apply shallow-merges the patch over current and returns the result.
func (p SettingsPatch) Apply(current models.AppSettings) models.AppSettings {
	merged := current
	if p.SchoolName != nil {
		merged.SchoolName = *p.SchoolName
	}
	if p.CounselorName != nil {
		merged.CounselorName = *p.CounselorName
	}
	if p.Levels != nil {
		merged.Levels = append([]string(nil), p.Levels...)
	}
	if p.Groups != nil {
		merged.Groups = append([]string(nil), p.Groups...)
	}
	if p.Semesters != nil {
		merged.Semesters = append([]string(nil), p.Semesters...)
	}
	if p.Timezone != nil {
		merged.Timezone = *p.Timezone
	}
	if p.Sections != nil {
		sections := make(map[string]bool, len(p.Sections))
		for key, enabled := range p.Sections {
			sections[key] = enabled
		}
		merged.Sections = sections
	}
	if p.SecurityQuestion != nil {
		merged.SecurityQuestion = *p.SecurityQuestion
	}
	if p.SecurityAnswer != nil {
		merged.SecurityAnswer = *p.SecurityAnswer
	}
	return merged
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.SchoolName == nil && p.CounselorName == nil && p.Levels == nil && p.Groups == nil &&
		p.Semesters == nil && p.Timezone == nil && p.Sections == nil &&
		p.SecurityQuestion == nil && p.SecurityAnswer == nil
}
