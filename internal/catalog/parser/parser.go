// Package parser turns a curriculum page into requirement buckets. Every
// extraction step is an independent pass over the same immutable document, the
// passes are merged in a fixed order so that keys stay unique.
package parser

import (
	"context"
	"fmt"
	"runtime/debug"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/components/assert"
	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/lib/htmlutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("catalog.parser")

const (
	report_parser_parse_document = "parser.parse-document"
	report_parser_parse_sub_page = "parser.parse-sub-page"
)

type Parser struct {
	tel telemetry.API
}

func NewParser(tel telemetry.API) Parser {
	assert.NotNil(tel)
	return Parser{tel: telemetry.NewScopedAPI("parser", tel)}
}

// addBucket stores a bucket under key, suffixing the key if it is already taken.
func addBucket(result *catalog.ParseResult, key string, bucket catalog.RequirementBucket) string {
	unique := key
	for i := 2; ; i++ {
		if _, exists := result.Buckets[unique]; !exists {
			break
		}
		unique = fmt.Sprintf("%s_%d", key, i)
	}
	result.Buckets[unique] = bucket
	if bucket.Kind == catalog.KIND_CATEGORY {
		result.Categories = append(result.Categories, unique)
	}
	return unique
}

// Parse parses a single curriculum document.
func (p Parser) Parse(ctx context.Context, content string) catalog.ParseResult {
	_, span := tracer.Start(ctx, "Parse")
	defer span.End()

	result := catalog.NewParseResult()

	doc, err := htmlutil.NewDocument(content)
	if err != nil {
		p.tel.ReportWarning(report_parser_parse_document, err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not parse document: %v", err))
		return result
	}
	text := htmlutil.SelectionText(doc.Selection)

	result.ExtractedCourses = catalog.ExtractCourseCodes(text)
	result.CoursesFound = len(result.ExtractedCourses)
	allowed := catalog.CourseSet(result.ExtractedCourses)

	for _, block := range extractCategories(doc, allowed) {
		addBucket(&result, block.Key, block.Bucket)
	}
	for _, block := range extractSelections(text, allowed) {
		addBucket(&result, block.Key, block.Bucket)
	}

	result.Footnotes = extractFootnotes(text)
	for n, f := range extractFootnoteList(doc) {
		if _, exists := result.Footnotes[n]; !exists {
			result.Footnotes[n] = f
		}
	}

	for _, block := range extractFlexible(text) {
		addBucket(&result, block.Key, block.Bucket)
	}

	genEd, warnings := extractGenEd(text, allowed)
	for _, block := range genEd {
		addBucket(&result, block.Key, block.Bucket)
	}
	result.Warnings = append(result.Warnings, warnings...)

	span.SetAttributes(
		attribute.Int("courses", result.CoursesFound),
		attribute.Int("buckets", len(result.Buckets)),
	)
	return result
}

func (p Parser) parseSubPage(ctx context.Context, name string, page catalog.SubPage) (result catalog.ParseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while parsing %s: %v\n%s", name, r, debug.Stack())
		}
	}()
	if page.Err != nil {
		return catalog.ParseResult{}, page.Err
	}
	return p.Parse(ctx, page.Content), nil
}

// ParseMultiLevel parses every sub-page of a multi-level program on its own and
// aggregates the results. A sub-page that failed to be fetched or parsed is kept
// with an empty result and its error, it never affects the other sub-pages.
func (p Parser) ParseMultiLevel(ctx context.Context, order []string, pages map[string]catalog.SubPage) catalog.ParseResult {
	ctx, span := tracer.Start(ctx, "ParseMultiLevel")
	defer span.End()

	aggregate := catalog.NewParseResult()
	aggregate.Concentrations = map[string]catalog.ConcentrationResult{}
	extracted := map[string]struct{}{}

	for _, name := range order {
		page, ok := pages[name]
		if !ok {
			continue
		}

		result, err := p.parseSubPage(ctx, name, page)
		if err != nil {
			p.tel.ReportWarning(report_parser_parse_sub_page, err, name, page.Url)
			result = catalog.NewParseResult()
		}
		result.ConcentrationName = name

		aggregate.Concentrations[name] = catalog.ConcentrationResult{
			Url:        page.Url,
			Result:     result,
			Validation: page.Validation,
			Err:        err,
		}
		aggregate.ConcentrationOrder = append(aggregate.ConcentrationOrder, name)
		if err != nil {
			continue
		}

		for _, key := range result.OrderedKeys() {
			if _, exists := aggregate.Buckets[key]; exists {
				continue
			}
			addBucket(&aggregate, key, result.Buckets[key])
		}
		for n, f := range result.Footnotes {
			if _, exists := aggregate.Footnotes[n]; !exists {
				aggregate.Footnotes[n] = f
			}
		}
		for _, code := range result.ExtractedCourses {
			if _, exists := extracted[code]; !exists {
				extracted[code] = struct{}{}
				aggregate.ExtractedCourses = append(aggregate.ExtractedCourses, code)
			}
		}
		aggregate.SubPageCourseTotal += result.CoursesFound
		for _, w := range result.Warnings {
			aggregate.Warnings = append(aggregate.Warnings, fmt.Sprintf("%s: %s", name, w))
		}
	}

	aggregate.CoursesFound = len(aggregate.ExtractedCourses)
	span.SetAttributes(
		attribute.Int("concentrations", len(aggregate.ConcentrationOrder)),
		attribute.Int("courses", aggregate.CoursesFound),
	)
	return aggregate
}
