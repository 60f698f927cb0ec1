package service

import (
	"regexp"
	"strings"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

// subjectVariants lists the raw spellings that resolve to each canonical subject.
// Every code is implicitly a variant of itself.
var subjectVariants = []struct {
	code     models.CanonicalSubject
	variants []string
}{
	{models.SubjectMath, []string{"MATH", "MATHS", "MATHEMATICS", "MTH"}},
	{models.SubjectPhysics, []string{"PHYSICS", "PHY", "PHYS"}},
	{models.SubjectChemistry, []string{"CHEMISTRY", "CHEM"}},
	{models.SubjectBiology, []string{"BIOLOGY", "BIO"}},
	{models.SubjectScience, []string{"SCIENCE", "SCI", "EVS"}},
	{models.SubjectEnglish, []string{"ENGLISH", "ENG"}},
	{models.SubjectHindi, []string{"HINDI", "HIN"}},
	{models.SubjectSanskrit, []string{"SANSKRIT", "SKT"}},
	{models.SubjectAccountancy, []string{"ACCOUNTANCY", "ACCOUNTS", "ACCTS", "ACC"}},
	{models.SubjectEconomics, []string{"ECONOMICS", "ECO", "ECON"}},
	{models.SubjectBusinessStudies, []string{"BUSINESS STUDIES", "BUSINESS", "BST", "B.ST.", "B.ST"}},
	{models.SubjectComputer, []string{"COMPUTER", "COMPUTER SCIENCE", "COMPUTERS", "CS", "COMP", "IP", "INFORMATICS PRACTICES"}},
	{models.SubjectHistory, []string{"HISTORY", "HIST"}},
	{models.SubjectGeography, []string{"GEOGRAPHY", "GEO"}},
	{models.SubjectPoliticalScience, []string{"POLITICAL SCIENCE", "POLITICAL", "POL.SC", "POL.SC.", "POL SCI"}},
	{models.SubjectSST, []string{"SST", "S.ST.", "S.ST", "SOCIAL STUDIES", "SOCIAL SCIENCE"}},
	{models.SubjectAI, []string{"AI", "ARTIFICIAL INTELLIGENCE"}},
	{models.SubjectPHE, []string{"PHE", "PHYSICAL EDUCATION", "P.E.", "PE"}},
	{models.SubjectGK, []string{"GK", "G.K.", "GENERAL KNOWLEDGE"}},
	{models.SubjectMisc, []string{"MSC", "M.SC.", "M.SC"}},
	{models.SubjectDrawing, []string{"DRAWING", "DRAW", "ART"}},
	{models.SubjectGames, []string{"GAMES", "GAME", "SPORTS"}},
	{models.SubjectMusic, []string{"MUSIC"}},
}

type subjectVariant struct {
	phrase string
	code   models.CanonicalSubject
}

var (
	exactSubjects  map[string]models.CanonicalSubject
	phraseSubjects []subjectVariant

	// Roman or numeric class name followed by one or more section letters, e.g. "XI-A", "IX B/C", "7 A (1-2)".
	classPrefixPattern = regexp.MustCompile(`^(XII|XI|X|IX|VIII|VII|VI|V|IV|III|II|I|\d{1,2})[\s-]+[A-F](/[A-F])*(\s*\(\d-\d\))?\s+`)
	classOnlyPattern   = regexp.MustCompile(`^(XII|XI|X|IX|VIII|VII|VI|V|IV|III|II|I|\d{1,2})([\s-]+[A-F](/[A-F])*)?$`)
	separatorReplacer  = strings.NewReplacer("-", " ", "/", " ", ",", " ", "&", " ", "+", " ", ";", " ")
)

func init() {
	exactSubjects = make(map[string]models.CanonicalSubject)
	for _, entry := range subjectVariants {
		exactSubjects[string(entry.code)] = entry.code
		phraseSubjects = append(phraseSubjects, subjectVariant{phrase: string(entry.code), code: entry.code})
		for _, v := range entry.variants {
			exactSubjects[v] = entry.code
			phraseSubjects = append(phraseSubjects, subjectVariant{phrase: v, code: entry.code})
		}
	}
}

// NormalizeSubject maps a class label or raw subject string to its canonical subject.
// It never fails and NormalizeSubject(NormalizeSubject(x)) == NormalizeSubject(x).
func NormalizeSubject(raw string) models.CanonicalSubject {
	token := strings.Join(strings.Fields(strings.ToUpper(raw)), " ")
	for {
		next := extractSubjectToken(token)
		if next == token {
			break
		}
		token = next
	}
	if code, ok := lookupSubject(token); ok {
		return code
	}
	return models.CanonicalSubject(token)
}

// extractSubjectToken peels one layer of class decoration off an upper-cased label.
// The result is always the input or a strict substring of it.
func extractSubjectToken(s string) string {
	if open := strings.Index(s, "("); open >= 0 {
		if rel := strings.Index(s[open:], ")"); rel >= 0 {
			before := strings.TrimSpace(s[:open])
			after := strings.TrimSpace(s[open+rel+1:])
			switch {
			case before != "" && !classOnlyPattern.MatchString(before):
				return before
			case after != "":
				return after
			case before != "":
				return before
			}
		}
	}
	if prefix := classPrefixPattern.FindString(s); prefix != "" && len(prefix) < len(s) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return s
}

func lookupSubject(token string) (models.CanonicalSubject, bool) {
	if token == "" {
		return "", false
	}
	if code, ok := exactSubjects[token]; ok {
		return code, true
	}
	padded := " " + strings.Join(strings.Fields(separatorReplacer.Replace(token)), " ") + " "
	var (
		best    models.CanonicalSubject
		bestLen int
	)
	for _, v := range phraseSubjects {
		if len(v.phrase) > bestLen && strings.Contains(padded, " "+v.phrase+" ") {
			best, bestLen = v.code, len(v.phrase)
		}
	}
	return best, bestLen > 0
}

// TeachesSubject reports whether any of a teacher's raw subjects normalises to target.
// Raw entries may hold several comma separated subjects.
func TeachesSubject(subjects []string, target models.CanonicalSubject) bool {
	if target == "" {
		return false
	}
	for _, raw := range subjects {
		for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '|' }) {
			if strings.TrimSpace(part) == "" {
				continue
			}
			if NormalizeSubject(part) == target {
				return true
			}
		}
	}
	return false
}
