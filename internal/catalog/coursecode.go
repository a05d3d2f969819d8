package catalog

import (
	"regexp"
	"strings"
)

// courseCodeRegex matches the shape of a course code: 2-4 uppercase letters, an
// optional space, 4 digits and an optional trailing letter (ex. "CS 1301", "PHYS2211L").
var courseCodeRegex = regexp.MustCompile(`\b([A-Z]{2,4})\s?(\d{4})([A-Z]?)\b`)

var normalizedCodeRegex = regexp.MustCompile(`^[A-Z]{2,4} \d{4}[A-Z]?$`)

// falsePositivePrefixes are uppercase tokens followed by 4 digits that show up in
// catalog pages without being course codes.
var falsePositivePrefixes = map[string]bool{
	"HTTP": true, "HTML": true, "API": true, "URL": true, "PDF": true, "CSS": true,
	"ISBN": true, "ISSN": true, "UTF": true, "ISO": true, "GMT": true, "UTC": true,
	"EST": true, "EDT": true, "PST": true, "FALL": true, "SPR": true, "SUM": true,
	"JAN": true, "FEB": true, "MAR": true, "APR": true, "MAY": true, "JUNE": true,
	"JULY": true, "AUG": true, "SEPT": true, "SEP": true, "OCT": true,
	"NOV": true, "DEC": true, "ROOM": true, "PAGE": true, "FAX": true, "TEL": true,
	"ZIP": true, "YEAR": true, "AND": true, "THE": true, "FOR": true, "OR": true,
	"TO": true, "IN": true, "OF": true, "ON": true, "AT": true, "BY": true, "NO": true,
	"AY": true, "FY": true, "GPA": true, "SAT": true, "ACT": true,
}

// DepartmentPrefixes is the allowlist of department prefixes recognized by the
// catalog, prefixes outside of this list are still accepted if they are not known
// false positives.
var DepartmentPrefixes = map[string]bool{
	"ACCT": true, "AE": true, "APPH": true, "ARBC": true, "ARCH": true, "BC": true,
	"BCP": true, "BIOL": true, "BIOS": true, "BMED": true, "BMEJ": true, "CETL": true,
	"CEE": true, "CHBE": true, "CHEM": true, "CHIN": true, "CP": true, "CS": true,
	"CSE": true, "CX": true, "DOPP": true, "EAS": true, "ECE": true, "ECON": true,
	"ENGL": true, "FREN": true, "GRMN": true, "HIST": true, "HTS": true, "HUM": true,
	"ID": true, "INTA": true, "INTN": true, "ISYE": true, "JAPN": true, "KOR": true,
	"LING": true, "LMC": true, "MATH": true, "ME": true, "MGT": true, "ML": true,
	"MP": true, "MSE": true, "MUSI": true, "NRE": true, "NS": true, "PHIL": true,
	"PHYS": true, "POL": true, "PSYC": true, "PUBP": true, "RUSS": true, "SOC": true,
	"SPAN": true, "SS": true,
}

// NormalizeCourseCode turns "cs1301" or "CS  1301" into "CS 1301", the second return
// value is false if the input is not shaped like a course code.
func NormalizeCourseCode(code string) (string, bool) {
	m := courseCodeRegex.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(code)))
	if m == nil {
		return "", false
	}
	return m[1] + " " + m[2] + m[3], true
}

// CoursePrefix returns the department prefix of a normalized course code.
func CoursePrefix(code string) string {
	prefix, _, _ := strings.Cut(code, " ")
	return prefix
}

// IsValidCourseCode reports whether a normalized code survives false positive
// filtering.
func IsValidCourseCode(code string) bool {
	prefix := CoursePrefix(code)
	if DepartmentPrefixes[prefix] {
		return true
	}
	if falsePositivePrefixes[prefix] {
		return false
	}
	return normalizedCodeRegex.MatchString(code)
}

// ExtractCourseCodes extracts every course code of a text in order of first
// appearance, deduplicated and with false positives removed.
func ExtractCourseCodes(text string) []string {
	matches := courseCodeRegex.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		code := m[1] + " " + m[2] + m[3]
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		if !IsValidCourseCode(code) {
			continue
		}
		out = append(out, code)
	}
	return out
}

// FilterCourses keeps the codes that are part of allowed, preserving order.
func FilterCourses(codes []string, allowed map[string]struct{}) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := allowed[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// CourseSet turns a list of course codes into a set.
func CourseSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}
