package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"catalog-ingest/internal/catalog"
)

const (
	// characters of context taken on each side of a gen-ed keyword
	genEdContext = 300
	// gen-ed requirements above this many credits are most likely a misparse
	maxPlausibleGenEdCredits = 15
)

type genEdArea struct {
	Area           string
	Keywords       []string
	Prefixes       map[string]bool
	DefaultCredits int
}

func prefixes(p ...string) map[string]bool {
	out := make(map[string]bool, len(p))
	for _, s := range p {
		out[s] = true
	}
	return out
}

var genEdAreas = []genEdArea{
	{
		Area:     "humanities",
		Keywords: []string{"humanities", "arts and humanities"},
		Prefixes: prefixes(
			"HUM", "ENGL", "LMC", "PHIL", "HIST", "HTS", "MUSI", "ARCH", "FREN", "SPAN",
			"GRMN", "JAPN", "CHIN", "KOR", "RUSS", "ARBC", "LING", "ML",
		),
		DefaultCredits: 6,
	},
	{
		Area:           "social_science",
		Keywords:       []string{"social science", "social sciences"},
		Prefixes:       prefixes("SS", "ECON", "PSYC", "POL", "INTA", "PUBP", "SOC", "HTS", "HIST"),
		DefaultCredits: 9,
	},
	{
		Area:           "wellness",
		Keywords:       []string{"wellness", "health and performance"},
		Prefixes:       prefixes("APPH"),
		DefaultCredits: 2,
	},
	{
		Area:           "constitution",
		Keywords:       []string{"u.s. constitution", "us constitution", "georgia constitution", "constitution"},
		Prefixes:       prefixes("POL", "HIST", "PUBP", "INTA"),
		DefaultCredits: 3,
	},
	{
		Area:           "ethics",
		Keywords:       []string{"ethics"},
		Prefixes:       prefixes("PHIL", "PUBP", "LMC", "HTS", "INTA", "CS", "ISYE"),
		DefaultCredits: 3,
	},
}

var (
	genEdCreditsRegex   = regexp.MustCompile(`(?i)\b(\d{1,2})[ \t]*(?:-|semester[ \t]+|credit[ \t]+)?(?:credit|hour)s?\b`)
	anyWordRegex        = regexp.MustCompile(`(?i)\bany\s`)
	genEdShorthandRegex = regexp.MustCompile(`\b(?i:any)[ \t]+(HUM|SS)[ \t]*:?[ \t]*(\d{1,2})\b`)
)

var shorthandAreas = map[string]string{
	"HUM": "humanities",
	"SS":  "social_science",
}

func genEdKey(area string) string {
	return "gen_ed_" + area
}

// contextAround returns up to radius bytes of text on each side of [start, end),
// aligned on rune boundaries.
func contextAround(text string, start, end, radius int) (string, int) {
	from := max(0, start-radius)
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := min(len(text), end+radius)
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return text[from:to], start - from
}

// nearestCredits returns the credit count mentioned closest to offset in text.
func nearestCredits(text string, offset int) (int, bool) {
	best, distance := 0, -1
	for _, m := range genEdCreditsRegex.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n == 0 {
			continue
		}
		d := m[0] - offset
		if d < 0 {
			d = -d
		}
		if distance < 0 || d < distance {
			best, distance = n, d
		}
	}
	return best, distance >= 0
}

func genEdRule(window string, courses []string) catalog.SelectionRule {
	switch {
	case anyWordRegex.MatchString(window):
		return catalog.SelectionRule{Type: catalog.RULE_ANY_FROM_CATEGORY}
	case len(courses) > 1:
		return catalog.SelectionRule{Type: catalog.RULE_CHOOSE_FROM_LIST, Count: 1}
	case len(courses) == 1:
		return catalog.SelectionRule{Type: catalog.RULE_REQUIRED}
	default:
		return catalog.SelectionRule{Type: catalog.RULE_ANY_FROM_CATEGORY}
	}
}

// keywordPatterns holds one case insensitive pattern per keyword of every area.
var keywordPatterns = func() map[string][]*regexp.Regexp {
	out := map[string][]*regexp.Regexp{}
	for _, area := range genEdAreas {
		for _, k := range area.Keywords {
			out[area.Area] = append(out[area.Area], regexp.MustCompile(`(?i)`+regexp.QuoteMeta(k)))
		}
	}
	return out
}()

func findKeyword(text, area string) (int, int, bool) {
	for _, re := range keywordPatterns[area] {
		if loc := re.FindStringIndex(text); loc != nil {
			return loc[0], loc[1], true
		}
	}
	return 0, 0, false
}

// extractGenEd looks for every general education area of the taxonomy and
// returns the buckets found along with completeness warnings.
func extractGenEd(text string, allowed map[string]struct{}) ([]categoryBlock, []string) {
	found := map[string]catalog.RequirementBucket{}
	var order []string

	for _, area := range genEdAreas {
		start, end, ok := findKeyword(text, area.Area)
		if !ok {
			continue
		}
		window, offset := contextAround(text, start, end, genEdContext)

		credits, ok := nearestCredits(window, offset)
		if !ok {
			credits = area.DefaultCredits
		}

		courses := []string{}
		for _, code := range catalog.FilterCourses(catalog.ExtractCourseCodes(window), allowed) {
			if area.Prefixes[catalog.CoursePrefix(code)] {
				courses = append(courses, code)
			}
		}

		found[area.Area] = catalog.RequirementBucket{
			Kind:            catalog.KIND_GEN_ED,
			Name:            text[start:end],
			Area:            area.Area,
			Courses:         courses,
			CreditsRequired: credits,
			Rule:            genEdRule(window, courses),
		}
		order = append(order, area.Area)
	}

	for _, m := range genEdShorthandRegex.FindAllStringSubmatch(text, -1) {
		area := shorthandAreas[strings.ToUpper(m[1])]
		credits, _ := strconv.Atoi(m[2])
		if _, exists := found[area]; !exists {
			order = append(order, area)
		}
		found[area] = catalog.RequirementBucket{
			Kind:            catalog.KIND_GEN_ED,
			Name:            collapse(m[0]),
			Area:            area,
			Courses:         []string{},
			CreditsRequired: credits,
			Rule:            catalog.SelectionRule{Type: catalog.RULE_ANY_FROM_CATEGORY},
		}
	}

	var warnings []string
	_, hasHum := found["humanities"]
	_, hasSS := found["social_science"]
	if !hasHum && !hasSS {
		warnings = append(warnings, "no humanities or social science requirement found, gen-ed parsing may have failed")
	}

	out := make([]categoryBlock, 0, len(order))
	for _, area := range order {
		bucket := found[area]
		if bucket.CreditsRequired > maxPlausibleGenEdCredits {
			warnings = append(warnings, fmt.Sprintf("implausible %s requirement of %d credits", area, bucket.CreditsRequired))
		}
		out = append(out, categoryBlock{Key: genEdKey(area), Bucket: bucket})
	}
	return out, warnings
}
