package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"catalog-ingest/internal/catalog"
)

// maxSelectionLookahead bounds how many lines after a "select N of the following"
// phrase may contribute courses to it.
const maxSelectionLookahead = 12

var selectionRegex = regexp.MustCompile(
	`(?i)\bselect\s+(one|two|three|four|five|six|seven|eight|nine|ten|\d{1,2})\s+(?:courses?\s+|hours?\s+|credits?\s+)?(?:of|from)\s+the\s+following(?:[ \t]*[:\-]?[ \t]*\(?(\d{1,2})\)?\b)?`,
)

// extractSelections finds every "select N of the following" group of a text and
// the courses immediately listed after it. Keys are "selection_1", "selection_2"...
// in document order.
func extractSelections(text string, allowed map[string]struct{}) []categoryBlock {
	lines := strings.Split(text, "\n")

	var out []categoryBlock
	for i, line := range lines {
		m := selectionRegex.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		n := quantity(line[m[2]:m[3]])
		credits := 0
		if m[4] >= 0 {
			credits, _ = strconv.Atoi(line[m[4]:m[5]])
		}

		// courses listed on the same line as the phrase
		courses := catalog.ExtractCourseCodes(line[m[1]:])
		for j := i + 1; j < len(lines) && j <= i+maxSelectionLookahead; j++ {
			if selectionRegex.MatchString(lines[j]) {
				break
			}
			codes := catalog.ExtractCourseCodes(lines[j])
			if len(codes) == 0 {
				if len(courses) > 0 {
					break
				}
				continue
			}
			courses = appendUnique(courses, codes...)
		}
		courses = catalog.FilterCourses(courses, allowed)

		out = append(out, categoryBlock{
			Key: fmt.Sprintf("selection_%d", len(out)+1),
			Bucket: catalog.RequirementBucket{
				Kind:            catalog.KIND_SELECTION,
				Name:            collapse(line[m[0]:m[1]]),
				Courses:         courses,
				CreditsRequired: credits,
				Quantity:        n,
				Rule:            catalog.SelectionRule{Type: catalog.RULE_CHOOSE_N, Count: n},
			},
		})
	}
	return out
}
