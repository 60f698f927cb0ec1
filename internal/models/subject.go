package models

// CanonicalSubject is the normalised code used to compare subjects.
type CanonicalSubject string

const (
	SubjectMath             CanonicalSubject = "MATH"
	SubjectPhysics          CanonicalSubject = "PHYSICS"
	SubjectChemistry        CanonicalSubject = "CHEMISTRY"
	SubjectBiology          CanonicalSubject = "BIOLOGY"
	SubjectScience          CanonicalSubject = "SCIENCE"
	SubjectEnglish          CanonicalSubject = "ENGLISH"
	SubjectHindi            CanonicalSubject = "HINDI"
	SubjectSanskrit         CanonicalSubject = "SANSKRIT"
	SubjectAccountancy      CanonicalSubject = "ACCOUNTANCY"
	SubjectEconomics        CanonicalSubject = "ECONOMICS"
	SubjectBusinessStudies  CanonicalSubject = "BUSINESS_STUDIES"
	SubjectComputer         CanonicalSubject = "COMPUTER"
	SubjectHistory          CanonicalSubject = "HISTORY"
	SubjectGeography        CanonicalSubject = "GEOGRAPHY"
	SubjectPoliticalScience CanonicalSubject = "POLITICAL_SCIENCE"
	SubjectSST              CanonicalSubject = "SST"
	SubjectAI               CanonicalSubject = "AI"
	SubjectPHE              CanonicalSubject = "PHE"
	SubjectGK               CanonicalSubject = "GK"
	SubjectMisc             CanonicalSubject = "MISC"
	SubjectDrawing          CanonicalSubject = "DRAWING"
	SubjectGames            CanonicalSubject = "GAMES"
	SubjectMusic            CanonicalSubject = "MUSIC"
)
