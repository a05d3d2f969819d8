package catalog

import (
	"net/url"
	"slices"
	"strings"
	"time"
)

// Program is a degree program seed, either discovered from the catalog index or
// configured statically.
type Program struct {
	Name string `json:"name"`
	Url  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// Slug returns the last path segment of the program url ("computer-science-bs").
func (p Program) Slug() string {
	link, err := url.Parse(p.Url)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(link.Path, "/"), "/")
	return segments[len(segments)-1]
}

type ContentType string

const (
	CONTENT_FULL_CURRICULUM    ContentType = "full_curriculum"
	CONTENT_PARTIAL_CURRICULUM ContentType = "partial_curriculum"
	CONTENT_MINIMAL_CURRICULUM ContentType = "minimal_curriculum"
	CONTENT_INSUFFICIENT       ContentType = "insufficient_content"
)

// QualityChecks are the heuristics run over the full text of a candidate page.
type QualityChecks struct {
	HasGenEd           bool     `json:"hasGenEd"`
	HasThreads         bool     `json:"hasThreads"`
	HasCreditInfo      bool     `json:"hasCreditInfo"`
	CreditMentions     int      `json:"creditMentions"`
	PrefixDiversity    int      `json:"prefixDiversity"`
	SuspiciousPatterns []string `json:"suspiciousPatterns,omitempty"`
}

// Recovery describes how a page that failed the course count check may still be
// used.
type Recovery struct {
	Recoverable bool   `json:"recoverable"`
	Strategy    string `json:"strategy,omitempty"`
}

// ContentValidation is the verdict on whether a document is a curriculum page.
type ContentValidation struct {
	IsValid      bool          `json:"isValid"`
	CourseCount  int           `json:"courseCount"`
	ContentType  ContentType   `json:"contentType"`
	QualityScore int           `json:"qualityScore"`
	Checks       QualityChecks `json:"gtSpecificChecks"`
	Recovery     *Recovery     `json:"recovery,omitempty"`
	Reason       string        `json:"reason,omitempty"`
}

type NavigationStep struct {
	Url  string `json:"url"`
	Type string `json:"type"`
}

// SubPage is one thread/concentration page discovered under a program page.
// Exactly one of Err and Validation is set.
type SubPage struct {
	Name       string
	Url        string
	Content    string
	Validation *ContentValidation
	Err        error
}

// DetectionResult is the outcome of trying every navigation pattern on a program.
type DetectionResult struct {
	Success        bool
	Pattern        string
	Content        string
	Validation     *ContentValidation
	NavigationPath []NavigationStep
	// SubLinks is keyed by concentration name, in discovery order of SubLinkOrder.
	SubLinks     map[string]SubPage
	SubLinkOrder []string
	Err          error
}

// --- parse results

type BucketKind string

const (
	KIND_CATEGORY  BucketKind = "category"
	KIND_SELECTION BucketKind = "selection"
	KIND_GEN_ED    BucketKind = "gen_ed"
	KIND_FLEXIBLE  BucketKind = "flexible"
)

type RuleType string

const (
	RULE_REQUIRED          RuleType = "required"
	RULE_CHOOSE_ONE        RuleType = "choose_one"
	RULE_CHOOSE_N          RuleType = "choose_n"
	RULE_ANY_FROM_CATEGORY RuleType = "any_from_category"
	RULE_CHOOSE_FROM_LIST  RuleType = "choose_from_list"
	RULE_CREDIT_QUOTA      RuleType = "credit_quota"
)

type SelectionRule struct {
	Type  RuleType `json:"type"`
	Count int      `json:"count,omitempty"`
}

// RequirementBucket is one requirement block of a curriculum page. Kind
// discriminates which of the optional fields are meaningful:
//
//   - category:  Courses, CreditsRequired, Alternatives
//   - selection: Courses, Quantity, CreditsRequired
//   - gen_ed:    Area, Courses, CreditsRequired
//   - flexible:  Area, CreditsRequired (no course list)
type RequirementBucket struct {
	Kind            BucketKind    `json:"kind"`
	Name            string        `json:"name"`
	Courses         []string      `json:"courses"`
	CreditsRequired int           `json:"creditsRequired,omitempty"`
	Alternatives    [][]string    `json:"alternatives,omitempty"`
	Rule            SelectionRule `json:"selectionRule"`
	Quantity        int           `json:"quantity,omitempty"`
	Area            string        `json:"area,omitempty"`
}

type FootnoteRule string

const (
	FOOTNOTE_COURSE_OPTIONS    FootnoteRule = "course_options"
	FOOTNOTE_GRADE_REQUIREMENT FootnoteRule = "grade_requirement"
	FOOTNOTE_CREDIT_LIMIT      FootnoteRule = "credit_limit"
	FOOTNOTE_CONDITIONAL_RULE  FootnoteRule = "conditional_rule"
	FOOTNOTE_GENERAL_RULE      FootnoteRule = "general_rule"
)

type Footnote struct {
	Content       string       `json:"content"`
	RuleType      FootnoteRule `json:"ruleType"`
	MappedCourses []string     `json:"mappedCourses"`
}

// ConcentrationResult is the parse of a single sub-page of a multi-level program.
type ConcentrationResult struct {
	Url        string
	Result     ParseResult
	Validation *ContentValidation
	Err        error
}

// ParseResult is the structured representation of a curriculum page, or of the
// aggregate of many pages for multi-level programs.
type ParseResult struct {
	ProgramName       string
	ConcentrationName string

	// Buckets holds every requirement bucket, keys are unique across kinds.
	Buckets map[string]RequirementBucket
	// Categories is the order in which category buckets appear in the document.
	Categories []string
	Footnotes  map[int]Footnote

	ExtractedCourses []string
	CoursesFound     int

	// SubPageCourseTotal is the sum of the sub-page course counts of a
	// multi-level result, shared courses are counted once per sub-page.
	SubPageCourseTotal int

	Concentrations     map[string]ConcentrationResult
	ConcentrationOrder []string

	Warnings []string
}

func NewParseResult() ParseResult {
	return ParseResult{
		Buckets:          map[string]RequirementBucket{},
		Footnotes:        map[int]Footnote{},
		ExtractedCourses: []string{},
	}
}

// Keys returns the bucket keys of a given kind. Category keys are returned in
// document order, the rest are sorted.
func (r ParseResult) Keys(kind BucketKind) []string {
	if kind == KIND_CATEGORY {
		out := make([]string, 0, len(r.Categories))
		for _, k := range r.Categories {
			if b, ok := r.Buckets[k]; ok && b.Kind == KIND_CATEGORY {
				out = append(out, k)
			}
		}
		return out
	}
	var out []string
	for k, b := range r.Buckets {
		if b.Kind == kind {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// OrderedKeys returns every bucket key: categories first in document order, then
// selections, gen-ed and flexible buckets.
func (r ParseResult) OrderedKeys() []string {
	out := r.Keys(KIND_CATEGORY)
	out = append(out, r.Keys(KIND_SELECTION)...)
	out = append(out, r.Keys(KIND_GEN_ED)...)
	out = append(out, r.Keys(KIND_FLEXIBLE)...)
	return out
}

// --- mapping results

type CourseDetail struct {
	Code    string  `json:"code"`
	Id      int64   `json:"id"`
	Title   string  `json:"title,omitempty"`
	Credits float64 `json:"credits"`
}

type MappedCategory struct {
	Kind                  BucketKind     `json:"kind"`
	Name                  string         `json:"name"`
	Area                  string         `json:"area,omitempty"`
	CourseIds             []int64        `json:"courseIds"`
	CourseDetails         []CourseDetail `json:"courseDetails"`
	Rule                  SelectionRule  `json:"selectionRule"`
	Quantity              int            `json:"quantity,omitempty"`
	Alternatives          [][]string     `json:"alternatives,omitempty"`
	ExpectedCredits       *float64       `json:"expectedCredits,omitempty"`
	ActualCredits         *float64       `json:"actualCredits,omitempty"`
	CreditValidationIssue bool           `json:"creditValidationIssue"`
	UnmappedCourses       []string       `json:"unmappedCourses"`
}

type CreditValidationIssue struct {
	Category string         `json:"category"`
	Name     string         `json:"name"`
	Expected float64        `json:"expected"`
	Actual   float64        `json:"actual"`
	Courses  []CourseDetail `json:"courses"`
}

type MappingResult struct {
	ProgramName            string
	ConcentrationName      string
	MappedRequirements     map[string]MappedCategory
	CreditValidationIssues []CreditValidationIssue
	UnmappedCourses        []string
	// Suggestions maps an unmapped code to the most similar known code.
	Suggestions  map[string]string
	MappedCount  int
	TotalCourses int
	QualityScore int
}

// --- processing

// ProcessingStatus is the state of a program in the pipeline, the last four are
// terminal.
type ProcessingStatus string

const (
	STATUS_PENDING        ProcessingStatus = "pending"
	STATUS_DETECTING      ProcessingStatus = "detecting"
	STATUS_PARSING        ProcessingStatus = "parsing"
	STATUS_MAPPING        ProcessingStatus = "mapping"
	STATUS_UPDATING       ProcessingStatus = "updating"
	STATUS_SUCCESS        ProcessingStatus = "success"
	STATUS_PARTIAL        ProcessingStatus = "partial"
	STATUS_FAILED         ProcessingStatus = "failed"
	STATUS_CRITICAL_ERROR ProcessingStatus = "critical_error"
)

// ProcessingResult is the outcome of running a single program through the
// pipeline.
type ProcessingResult struct {
	Program        Program
	Status         ProcessingStatus
	Pattern        string
	NavigationPath []NavigationStep
	CoursesFound   int
	MappedCourses  int
	QualityScore   int
	Elapsed        time.Duration
	// Message is the failure reason or the partial warning.
	Message string
	Err     error
	Stack   string
	// ProgramIds are the ids of the degree programs written for this program,
	// one per concentration for multi-level programs.
	ProgramIds []int64
}

// SessionStats are the running counters of a scraping run.
type SessionStats struct {
	SessionId          string
	StartedAt          time.Time
	TotalPrograms      int
	ProcessedPrograms  int
	SuccessfulPrograms int
	PartialPrograms    int
	FailedPrograms     int
}

// Record counts a finished program.
func (s *SessionStats) Record(status ProcessingStatus) {
	s.ProcessedPrograms++
	switch status {
	case STATUS_SUCCESS:
		s.SuccessfulPrograms++
	case STATUS_PARTIAL:
		s.PartialPrograms++
	default:
		s.FailedPrograms++
	}
}
