// Package validator scores how likely a fetched document is to be a genuine
// curriculum page, independently of how the page was reached.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/lib/htmlutil"
	"catalog-ingest/lib/textutil"
)

const (
	FullCurriculumCourses    = 15
	PartialCurriculumCourses = 8
	MinimalCurriculumCourses = 5

	// documents shorter than this (in characters of visible text) are penalized
	minDocumentLength = 500
	minCreditMentions = 3
)

const (
	SUSPICIOUS_LOW_PREFIX_DIVERSITY = "low_prefix_diversity"
	SUSPICIOUS_PROGRAM_OPTIONS_ONLY = "program_options_only"
	SUSPICIOUS_ADMISSION_ONLY       = "admission_without_requirements"
)

const (
	STRATEGY_THREAD_NAVIGATION    = "thread_navigation"
	STRATEGY_REQUIREMENTS_TAB     = "requirements_tab"
	STRATEGY_PREREQUISITE_MAPPING = "prerequisite_mapping"
)

var (
	genEdKeywords  = []string{"humanities", "social science", "wellness", "general education", "core imp", "institutional priority"}
	threadKeywords = []string{"thread", "concentration"}

	courseTerms      = []string{"course", "curriculum", "credit hour", "semester hour"}
	institutionTerms = []string{"georgia tech", "georgia institute of technology", "institute"}
	degreeTerms      = []string{"bachelor", "master", "doctor", "b.s.", "m.s.", "ph.d", "degree", "minor"}
	navigationTerms  = []string{"thread", "concentration", "track", "option", "pathway", "view", "see "}
)

var (
	creditMentionRegex = regexp.MustCompile(`(?i)\b(credit hours?|credits?|semester hours?)\b`)
	prerequisiteRegex  = regexp.MustCompile(`(?i)\b(pre|co)-?requisites?\b`)
	programOptionRegex = regexp.MustCompile(`(?i)program options`)
	admissionRegex     = regexp.MustCompile(`(?i)\badmission`)
	requirementRegex   = regexp.MustCompile(`(?i)\brequirement`)
)

// Validate validates an html document.
func Validate(content string) catalog.ContentValidation {
	return ValidateText(htmlutil.DocumentText(content))
}

// ValidateText validates the visible text of a document.
func ValidateText(text string) catalog.ContentValidation {
	courses := catalog.ExtractCourseCodes(text)
	count := len(courses)

	result := catalog.ContentValidation{
		CourseCount: count,
		ContentType: classify(count),
		Checks:      qualityChecks(text, courses),
	}
	result.IsValid = result.ContentType != catalog.CONTENT_INSUFFICIENT

	if !result.IsValid {
		recovery := attemptRecovery(text)
		result.Recovery = &recovery
		result.IsValid = recovery.Recoverable
		if recovery.Recoverable {
			result.Reason = fmt.Sprintf("recovered with %s after finding %d courses", recovery.Strategy, count)
		} else {
			result.Reason = fmt.Sprintf("insufficient course content: %d courses found", count)
		}
	}

	result.QualityScore = qualityScore(result.ContentType, result.Checks, len(text))
	return result
}

func classify(count int) catalog.ContentType {
	switch {
	case count >= FullCurriculumCourses:
		return catalog.CONTENT_FULL_CURRICULUM
	case count >= PartialCurriculumCourses:
		return catalog.CONTENT_PARTIAL_CURRICULUM
	case count >= MinimalCurriculumCourses:
		return catalog.CONTENT_MINIMAL_CURRICULUM
	default:
		return catalog.CONTENT_INSUFFICIENT
	}
}

func qualityChecks(text string, courses []string) catalog.QualityChecks {
	prefixes := map[string]struct{}{}
	for _, c := range courses {
		prefixes[catalog.CoursePrefix(c)] = struct{}{}
	}

	checks := catalog.QualityChecks{
		HasGenEd:        textutil.ContainsAny(text, genEdKeywords),
		HasThreads:      textutil.ContainsAny(text, threadKeywords),
		CreditMentions:  len(creditMentionRegex.FindAllStringIndex(text, -1)),
		PrefixDiversity: len(prefixes),
	}
	checks.HasCreditInfo = checks.CreditMentions > minCreditMentions

	if len(courses) > 0 && checks.PrefixDiversity < 2 {
		checks.SuspiciousPatterns = append(checks.SuspiciousPatterns, SUSPICIOUS_LOW_PREFIX_DIVERSITY)
	}
	if programOptionRegex.MatchString(text) && len(courses) < MinimalCurriculumCourses {
		checks.SuspiciousPatterns = append(checks.SuspiciousPatterns, SUSPICIOUS_PROGRAM_OPTIONS_ONLY)
	}
	if admissionRegex.MatchString(text) && !requirementRegex.MatchString(text) {
		checks.SuspiciousPatterns = append(checks.SuspiciousPatterns, SUSPICIOUS_ADMISSION_ONLY)
	}

	return checks
}

func attemptRecovery(text string) catalog.Recovery {
	lowered := strings.ToLower(text)
	hasNavigation := textutil.ContainsAny(lowered, navigationTerms)

	indicators := 0
	for _, group := range [][]string{courseTerms, institutionTerms, degreeTerms, navigationTerms} {
		if textutil.ContainsAny(lowered, group) {
			indicators++
		}
	}
	if indicators >= 3 {
		strategy := STRATEGY_REQUIREMENTS_TAB
		if hasNavigation {
			strategy = STRATEGY_THREAD_NAVIGATION
		}
		return catalog.Recovery{Recoverable: true, Strategy: strategy}
	}

	if prerequisiteRegex.MatchString(text) {
		return catalog.Recovery{Recoverable: true, Strategy: STRATEGY_PREREQUISITE_MAPPING}
	}
	return catalog.Recovery{}
}

func qualityScore(contentType catalog.ContentType, checks catalog.QualityChecks, length int) int {
	score := 0
	switch contentType {
	case catalog.CONTENT_FULL_CURRICULUM:
		score = 50
	case catalog.CONTENT_PARTIAL_CURRICULUM:
		score = 35
	case catalog.CONTENT_MINIMAL_CURRICULUM:
		score = 20
	}

	if checks.HasGenEd {
		score += 10
	}
	if checks.HasThreads {
		score += 10
	}
	if checks.HasCreditInfo {
		score += 10
	}
	if checks.PrefixDiversity >= 3 {
		score += 10
	}
	if checks.PrefixDiversity >= 5 {
		score += 10
	}

	score -= 10 * len(checks.SuspiciousPatterns)
	if length < minDocumentLength {
		score -= 15
	}

	return max(0, min(100, score))
}
