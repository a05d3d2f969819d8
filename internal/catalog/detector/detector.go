// Package detector finds the curriculum content of a program page by trying the
// navigation patterns the catalog uses, in order, until one yields valid content.
package detector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/catalog/validator"
	"catalog-ingest/internal/components/assert"
	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/internal/renderer"
	"catalog-ingest/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("catalog.detector")

const (
	report_detector_detect         = "detector.detect"
	report_detector_fetch_sub_page = "detector.fetch-sub-page"
)

// ErrNoValidContent is returned when every navigation pattern was exhausted
// without finding a valid curriculum page.
var ErrNoValidContent = errors.New("no navigation pattern yielded valid content")

// Pattern is a way of reaching the curriculum of a program page.
type Pattern struct {
	Name string
	// Anchor is the id of the page section that holds the content, the pattern
	// uses the whole page if it is empty.
	Anchor string
	// MultiLevel patterns may have their content split across sibling pages.
	MultiLevel bool
}

const (
	PATTERN_THREAD_SECTION        = "thread_section"
	PATTERN_CONCENTRATION_SECTION = "concentration_section"
	PATTERN_REQUIREMENTS_SECTION  = "requirements_section"
	PATTERN_DIRECT                = "direct"

	STEP_SUB_LINK = "sub_link"
	STEP_PROBE    = "probe"
)

// Patterns is the fixed order in which navigation patterns are tried.
var Patterns = []Pattern{
	{Name: PATTERN_THREAD_SECTION, Anchor: "threadstext", MultiLevel: true},
	{Name: PATTERN_CONCENTRATION_SECTION, Anchor: "concentrationstext", MultiLevel: true},
	{Name: PATTERN_REQUIREMENTS_SECTION, Anchor: "requirementstext"},
	{Name: PATTERN_DIRECT},
}

// DefaultProbeSuffixes are appended to a program slug to guess concentration
// pages when a program page does not link to any.
var DefaultProbeSuffixes = []string{"general", "management", "finance", "marketing", "accounting"}

type Options struct {
	// PageTimeout bounds every individual page fetch.
	PageTimeout   time.Duration
	ProbeSuffixes []string
	MaxSubLinks   int
}

type Detector struct {
	renderer renderer.Renderer
	tel      telemetry.API
	opts     Options
}

func NewDetector(r renderer.Renderer, opts Options, tel telemetry.API) Detector {
	assert.NotNil(r)
	assert.NotNil(tel)

	if opts.PageTimeout <= 0 {
		opts.PageTimeout = time.Second * 30
	}
	if opts.ProbeSuffixes == nil {
		opts.ProbeSuffixes = DefaultProbeSuffixes
	}
	if opts.MaxSubLinks <= 0 {
		opts.MaxSubLinks = 25
	}

	return Detector{
		renderer: r,
		tel:      telemetry.NewScopedAPI("detector", tel),
		opts:     opts,
	}
}

// detection holds the state of a single Detect call.
type detection struct {
	d     Detector
	base  *url.URL
	pages map[string]string

	// failures remembers fetch errors so a dead page costs one timeout
	failures map[string]error
	path     []catalog.NavigationStep
}

func (s *detection) step(link, kind string) {
	s.path = append(s.path, catalog.NavigationStep{Url: link, Type: kind})
}

// fetch fetches a url with the per-page timeout. Documents and fetch errors are
// both reused across patterns since anchors never reach the server.
func (s *detection) fetch(ctx context.Context, link string) (string, error) {
	key := withoutFragment(link)
	if page, ok := s.pages[key]; ok {
		return page, nil
	}
	if err, ok := s.failures[key]; ok {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.d.opts.PageTimeout)
	defer cancel()

	page, err := s.d.renderer.Fetch(ctx, link)
	if err != nil {
		s.failures[key] = err
		return "", err
	}
	s.pages[key] = page
	return page, nil
}

// Detect tries every pattern on a program url. It never returns early on a page
// failure, a failing pattern only moves detection on to the next one.
func (d Detector) Detect(ctx context.Context, programUrl string) catalog.DetectionResult {
	ctx, span := tracer.Start(ctx, "Detect")
	defer span.End()
	span.SetAttributes(attribute.String("url", programUrl))

	base, err := url.Parse(programUrl)
	if err != nil {
		return catalog.DetectionResult{Err: fmt.Errorf("parse program url: %w", err)}
	}

	s := &detection{
		d:        d,
		base:     base,
		pages:    map[string]string{},
		failures: map[string]error{},
	}

	var lastErr error
	for _, pattern := range Patterns {
		link := withoutFragment(programUrl)
		if pattern.Anchor != "" {
			link += "#" + pattern.Anchor
		}
		s.step(link, pattern.Name)

		content, validation, err := s.attempt(ctx, pattern, link)
		span.AddEvent("attempt", trace.WithAttributes(
			attribute.String("pattern", pattern.Name),
			attribute.Bool("ok", err == nil),
		))
		if err != nil {
			d.tel.ReportDebug("pattern failed", programUrl, pattern.Name, err.Error())
			lastErr = err
			continue
		}

		result := catalog.DetectionResult{
			Success:    true,
			Pattern:    pattern.Name,
			Content:    content,
			Validation: &validation,
		}
		if pattern.MultiLevel {
			s.collectSubPages(ctx, &result)
		}
		result.NavigationPath = s.path
		return result
	}

	err = errors.Join(ErrNoValidContent, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "no pattern succeeded")
	d.tel.ReportWarning(report_detector_detect, err, programUrl)

	return catalog.DetectionResult{
		NavigationPath: s.path,
		Err:            err,
	}
}

func (s *detection) attempt(ctx context.Context, pattern Pattern, link string) (string, catalog.ContentValidation, error) {
	page, err := s.fetch(ctx, link)
	if err != nil {
		return "", catalog.ContentValidation{}, fmt.Errorf("pattern %s: %w", pattern.Name, err)
	}

	content := page
	if pattern.Anchor != "" {
		section, ok := sectionHtml(page, pattern.Anchor)
		if !ok {
			return "", catalog.ContentValidation{}, fmt.Errorf("pattern %s: section #%s not present", pattern.Name, pattern.Anchor)
		}
		content = section
	}

	validation := validator.Validate(content)
	if !validation.IsValid {
		return "", validation, fmt.Errorf("pattern %s: content rejected: %s", pattern.Name, validation.Reason)
	}
	return content, validation, nil
}

// sectionHtml returns the html of the section a tab anchor points to, courseleaf
// catalogs render tab "#x" as the element "#xcontainer".
func sectionHtml(page, anchor string) (string, bool) {
	doc, err := htmlutil.NewDocument(page)
	if err != nil {
		return "", false
	}
	for _, id := range []string{anchor + "container", anchor} {
		sel := doc.Find("#" + id).First()
		if sel.Length() == 0 {
			continue
		}
		content, err := goquery.OuterHtml(sel)
		if err != nil {
			return "", false
		}
		return content, true
	}
	return "", false
}

func withoutFragment(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	parsed.Fragment = ""
	return parsed.String()
}

// programDir returns the parent path and slug of a program url path,
// "/programs/business-administration-bs/" gives "/programs/" and "business-administration-bs".
func programDir(u *url.URL) (string, string) {
	clean := strings.TrimSuffix(u.Path, "/")
	dir, slug := path.Split(clean)
	return dir, slug
}
