package parser

import (
	"regexp"
	"strconv"
	"strings"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/lib/htmlutil"
	"catalog-ingest/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	headerSelector = "h1, h2, h3, h4, h5, h6, strong, b, .areaheader, .courselistcomment"
	// headers longer than this are prose that happens to be bold
	maxHeaderLength = 80
	// maximum number of siblings gathered under a single header
	maxBlockSiblings = 60
)

var categoryKeywords = []string{
	"requirement", "core", "major", "elective", "field of study", "wellness",
	"mathematics", "science", "humanities", "writing", "social science",
	"technology", "institutional priority",
}

// flowTags are the elements that delimit a header's block, inline headers climb
// up to the nearest of them.
var flowTags = map[string]bool{
	"p": true, "li": true, "tr": true, "div": true, "dt": true, "dd": true, "caption": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var (
	trailingCreditsRegex = regexp.MustCompile(`^(.*?)(?:^|[\s:\-]+)\(?(\d{1,3})\)?\s*$`)
	selectionSuffixRegex = regexp.MustCompile(`(?i)[\s:\-]*\(?\s*\b(?:select|choose|any\s+of)\s+(?:one|two|three|four|five|six|seven|eight|nine|ten|\d{1,2})\b[^()]*\)?\s*$`)
	selectCountRegex     = regexp.MustCompile(`(?i)\bselect\s+(one|two|three|four|five|six|seven|eight|nine|ten|\d{1,2})\b`)
	orWordRegex          = regexp.MustCompile(`(?i)\bor\b`)
	orLineRegex          = regexp.MustCompile(`(?i)^or\b`)
	inlineOrRegex        = regexp.MustCompile(`\b[A-Z]{2,4}\s?\d{4}[A-Z]?(?:\s*,?\s+or\s+[A-Z]{2,4}\s?\d{4}[A-Z]?)+`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// quantity converts "two" or "2" into 2, it returns 0 for anything else.
func quantity(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := numberWords[s]; ok {
		return n
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

type categoryBlock struct {
	Key    string
	Bucket catalog.RequirementBucket
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isCategoryHeader(text string) bool {
	return text != "" && len(text) <= maxHeaderLength && textutil.ContainsAny(text, categoryKeywords)
}

func blockOf(sel *goquery.Selection) *goquery.Selection {
	cur := sel
	for {
		if flowTags[goquery.NodeName(cur)] {
			return cur
		}
		parent := cur.Parent()
		if parent.Length() == 0 || goquery.NodeName(parent) == "body" {
			return cur
		}
		cur = parent
	}
}

// splitCredits splits "Core Requirements 15" into "Core Requirements" and 15.
// A trailing selection count such as "(Select 2)" is not a credit total, it is
// dropped from the name and left for classifyRule.
func splitCredits(line string) (string, int) {
	if loc := selectionSuffixRegex.FindStringIndex(line); loc != nil && loc[0] > 0 {
		return strings.TrimSpace(line[:loc[0]]), 0
	}
	m := trailingCreditsRegex.FindStringSubmatch(line)
	if m == nil {
		return line, 0
	}
	name := strings.TrimSpace(m[1])
	// the number closes a parenthesised group that holds more than digits
	if open := strings.LastIndex(name, "("); open >= 0 && !strings.Contains(name[open:], ")") {
		return line, 0
	}
	n, _ := strconv.Atoi(m[2])
	return name, n
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// extractCategories finds every category header of a document and the courses
// listed under it, up to the next header. Only codes part of allowed are kept.
func extractCategories(doc *goquery.Document, allowed map[string]struct{}) []categoryBlock {
	type header struct {
		name  string
		block *goquery.Selection
	}

	var headers []header
	var blockNodes []*html.Node
	seen := map[*html.Node]bool{}
	doc.Find(headerSelector).Each(func(_ int, sel *goquery.Selection) {
		text := collapse(htmlutil.SelectionText(sel))
		if !isCategoryHeader(text) {
			return
		}
		block := blockOf(sel)
		node := block.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true
		headers = append(headers, header{name: text, block: block})
		blockNodes = append(blockNodes, node)
	})

	isBoundary := func(sel *goquery.Selection) bool {
		if seen[sel.Get(0)] {
			return true
		}
		return sel.HasNodes(blockNodes...).Length() > 0
	}

	var out []categoryBlock
	for _, h := range headers {
		parts := []string{htmlutil.SelectionText(h.block)}
		sibling := h.block.Next()
		for i := 0; i < maxBlockSiblings && sibling.Length() > 0; i++ {
			if isBoundary(sibling) {
				break
			}
			parts = append(parts, htmlutil.SelectionText(sibling))
			sibling = sibling.Next()
		}
		span := strings.Join(parts, "\n")

		name, _ := splitCredits(h.name)
		_, credits := splitCredits(collapse(firstLine(parts[0])))
		if name == "" {
			continue
		}

		courses := catalog.FilterCourses(catalog.ExtractCourseCodes(span), allowed)
		if len(courses) == 0 && credits == 0 {
			continue
		}

		alternatives := extractAlternatives(span, allowed)
		out = append(out, categoryBlock{
			Key: textutil.Slug(name),
			Bucket: catalog.RequirementBucket{
				Kind:            catalog.KIND_CATEGORY,
				Name:            name,
				Courses:         courses,
				CreditsRequired: credits,
				Alternatives:    alternatives,
				Rule:            classifyRule(span, alternatives),
			},
		})
	}
	return out
}

// classifyRule decides how the courses of a block are to be taken, an explicit
// "select N" wins over "or" alternatives.
func classifyRule(span string, alternatives [][]string) catalog.SelectionRule {
	if m := selectCountRegex.FindStringSubmatch(span); m != nil {
		if n := quantity(m[1]); n > 0 {
			return catalog.SelectionRule{Type: catalog.RULE_CHOOSE_N, Count: n}
		}
	}
	if len(alternatives) > 0 || orWordRegex.MatchString(span) {
		return catalog.SelectionRule{Type: catalog.RULE_CHOOSE_ONE, Count: 1}
	}
	return catalog.SelectionRule{Type: catalog.RULE_REQUIRED}
}

// extractAlternatives groups course codes joined by "or", either inline
// ("CS 1301 or CS 1371") or on a continuation line starting with "or".
func extractAlternatives(span string, allowed map[string]struct{}) [][]string {
	var groups [][]string
	var last []string
	current := -1

	for _, line := range strings.Split(span, "\n") {
		line = strings.TrimSpace(line)
		codes := catalog.FilterCourses(catalog.ExtractCourseCodes(line), allowed)
		if len(codes) == 0 {
			continue
		}

		if orLineRegex.MatchString(line) && last != nil {
			if current < 0 {
				groups = append(groups, []string{last[len(last)-1]})
				current = len(groups) - 1
			}
			groups[current] = appendUnique(groups[current], codes...)
			last = codes
			continue
		}

		current = -1
		for _, m := range inlineOrRegex.FindAllString(line, -1) {
			group := catalog.FilterCourses(catalog.ExtractCourseCodes(m), allowed)
			if len(group) > 1 {
				groups = append(groups, group)
				current = len(groups) - 1
			}
		}
		last = codes
	}
	return groups
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
