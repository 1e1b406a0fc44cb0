package domain

import "strings"

// Subject is the subject hint supplied with a document.
type Subject string

const (
	SubjectProgramming Subject = "programming"
	SubjectMathematics Subject = "mathematics"
	SubjectScience     Subject = "science"
	SubjectHistory     Subject = "history"
	SubjectLiterature  Subject = "literature"
	SubjectLanguage    Subject = "language"
	SubjectBusiness    Subject = "business"
	SubjectMedicine    Subject = "medicine"
	SubjectLaw         Subject = "law"
	SubjectGeneral     Subject = "general"
)

// Subjects lists every recognized subject in a stable order.
func Subjects() []Subject {
	return []Subject{
		SubjectProgramming,
		SubjectMathematics,
		SubjectScience,
		SubjectHistory,
		SubjectLiterature,
		SubjectLanguage,
		SubjectBusiness,
		SubjectMedicine,
		SubjectLaw,
		SubjectGeneral,
	}
}

// ParseSubject normalizes s and maps unrecognized values to SubjectGeneral.
func ParseSubject(s string) Subject {
	subject := Subject(strings.ToLower(strings.TrimSpace(s)))
	if IsValidSubject(subject) {
		return subject
	}
	return SubjectGeneral
}

// IsValidSubject reports whether s is one of the recognized subjects.
func IsValidSubject(s Subject) bool {
	switch s {
	case SubjectProgramming, SubjectMathematics, SubjectScience, SubjectHistory,
		SubjectLiterature, SubjectLanguage, SubjectBusiness, SubjectMedicine,
		SubjectLaw, SubjectGeneral:
		return true
	}
	return false
}
