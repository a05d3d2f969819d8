package parser

import (
	"regexp"
	"strconv"
	"strings"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/lib/htmlutil"
	"catalog-ingest/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const maxFootnote = 19

var footnoteRegex = regexp.MustCompile(`(?m)^[ \t]*(\d{1,2})[ \t]*:[ \t]*(\S.*)$`)

// footnote classification, the first matching group wins
var footnoteRules = []struct {
	rule     catalog.FootnoteRule
	keywords []string
}{
	{catalog.FOOTNOTE_GRADE_REQUIREMENT, []string{"grade", "gpa", "c or better", "b or better", "passing"}},
	{catalog.FOOTNOTE_CREDIT_LIMIT, []string{"credit hour", "credit limit", "maximum of", "no more than", "at most", "up to", "may not exceed", "limited to"}},
	{catalog.FOOTNOTE_CONDITIONAL_RULE, []string{"if ", "unless", "only if", "provided", "students who", "when "}},
	{catalog.FOOTNOTE_COURSE_OPTIONS, []string{"select", "choose", "option", "either", "substitut", "may take", "may be used", "in place of"}},
}

func classifyFootnote(content string) catalog.FootnoteRule {
	for _, r := range footnoteRules {
		if textutil.ContainsAny(content, r.keywords) {
			return r.rule
		}
	}
	return catalog.FOOTNOTE_GENERAL_RULE
}

func newFootnote(content string) catalog.Footnote {
	content = collapse(content)
	return catalog.Footnote{
		Content:       content,
		RuleType:      classifyFootnote(content),
		MappedCourses: catalog.ExtractCourseCodes(content),
	}
}

// extractFootnotes finds "N: text" footnotes at the start of a line, for N in
// 1..19. A number seen twice keeps its first text.
func extractFootnotes(text string) map[int]catalog.Footnote {
	out := map[int]catalog.Footnote{}
	for _, m := range footnoteRegex.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > maxFootnote {
			continue
		}
		if _, exists := out[n]; exists {
			continue
		}
		out[n] = newFootnote(m[2])
	}
	return out
}

// extractFootnoteList reads courseleaf style footnote lists, where each number is
// a <dt> followed by its text in a <dd>.
func extractFootnoteList(doc *goquery.Document) map[int]catalog.Footnote {
	out := map[int]catalog.Footnote{}
	doc.Find("dl.sc_footnotes dt").Each(func(_ int, dt *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(dt.Text()))
		if err != nil || n < 1 || n > maxFootnote {
			return
		}
		if _, exists := out[n]; exists {
			return
		}
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		content := htmlutil.SelectionText(dd)
		if strings.TrimSpace(content) == "" {
			return
		}
		out[n] = newFootnote(content)
	})
	return out
}
