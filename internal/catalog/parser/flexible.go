package parser

import (
	"regexp"
	"strconv"
	"strings"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/lib/textutil"
)

var flexibleRegex = regexp.MustCompile(
	`(?i)\b(any[ \t]+(?:social[ \t]+sciences?|[a-z]{2,10})|free[ \t]+electives?|electives?)[ \t]*:?[ \t]*\(?(\d{1,2})\)?(?:\b|$)`,
)

var flexibleAreas = map[string]string{
	"any hum":             "humanities",
	"any humanities":      "humanities",
	"any ss":              "social_science",
	"any social science":  "social_science",
	"any social sciences": "social_science",
	"free elective":       "free_electives",
	"free electives":      "free_electives",
	"elective":            "electives",
	"electives":           "electives",
}

// flexibleArea normalizes the token of a flexible requirement, "Any HUM" gives
// "humanities" and "Any LMC" gives "lmc".
func flexibleArea(token string) string {
	token = strings.ToLower(collapse(token))
	if area, ok := flexibleAreas[token]; ok {
		return area
	}
	return textutil.Slug(strings.TrimPrefix(token, "any "))
}

// extractFlexible finds credit-only requirements ("Any HUM 6", "Free Electives 12"),
// the first occurrence of an area wins.
func extractFlexible(text string) []categoryBlock {
	seen := map[string]bool{}
	var out []categoryBlock
	for _, m := range flexibleRegex.FindAllStringSubmatch(text, -1) {
		credits, err := strconv.Atoi(m[2])
		if err != nil || credits == 0 {
			continue
		}
		area := flexibleArea(m[1])
		if area == "" || seen[area] {
			continue
		}
		seen[area] = true

		out = append(out, categoryBlock{
			Key: "flexible_" + area,
			Bucket: catalog.RequirementBucket{
				Kind:            catalog.KIND_FLEXIBLE,
				Name:            collapse(m[1]),
				Area:            area,
				Courses:         []string{},
				CreditsRequired: credits,
				Rule:            catalog.SelectionRule{Type: catalog.RULE_CREDIT_QUOTA},
			},
		})
	}
	return out
}
