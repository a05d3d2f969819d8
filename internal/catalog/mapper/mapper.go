// Package mapper reconciles the course codes of a parse result with the known
// course catalog.
package mapper

import (
	"context"
	"math"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/components/assert"
	"catalog-ingest/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("catalog.mapper")

const report_mapper_credit_mismatch = "mapper.credit-mismatch"

// creditTolerance is how far the actual credits of a category may be from its
// declared credits before the category is flagged.
const creditTolerance = 1.0

const (
	unmappedPenaltyWeight = 40
	issuePenaltyWeight    = 20
	fullMappingBonus      = 5
	fullMappingThreshold  = 0.95
)

type Mapper struct {
	cache CourseCache
	tel   telemetry.API
}

func NewMapper(cache CourseCache, tel telemetry.API) Mapper {
	assert.NotNil(tel)
	return Mapper{
		cache: cache,
		tel:   telemetry.NewScopedAPI("mapper", tel),
	}
}

func creditsPtr(n float64) *float64 {
	return &n
}

// Map maps every bucket of a parse result. Credit mismatches are advisory and
// only recorded.
func (m Mapper) Map(ctx context.Context, result catalog.ParseResult) catalog.MappingResult {
	_, span := tracer.Start(ctx, "Map")
	defer span.End()

	out := catalog.MappingResult{
		ProgramName:        result.ProgramName,
		ConcentrationName:  result.ConcentrationName,
		MappedRequirements: map[string]catalog.MappedCategory{},
		UnmappedCourses:    []string{},
		Suggestions:        map[string]string{},
	}

	referenced := map[string]struct{}{}
	mapped := map[string]struct{}{}
	unmapped := map[string]struct{}{}
	categories := 0

	for _, key := range result.OrderedKeys() {
		bucket := result.Buckets[key]
		mc := catalog.MappedCategory{
			Kind:            bucket.Kind,
			Name:            bucket.Name,
			Area:            bucket.Area,
			Rule:            bucket.Rule,
			Quantity:        bucket.Quantity,
			Alternatives:    bucket.Alternatives,
			CourseIds:       []int64{},
			CourseDetails:   []catalog.CourseDetail{},
			UnmappedCourses: []string{},
		}
		if bucket.CreditsRequired > 0 {
			mc.ExpectedCredits = creditsPtr(float64(bucket.CreditsRequired))
		}

		// credit-only quotas have nothing to map
		if bucket.Kind == catalog.KIND_FLEXIBLE {
			out.MappedRequirements[key] = mc
			continue
		}

		actual := 0.0
		for _, code := range bucket.Courses {
			referenced[code] = struct{}{}
			info, ok := m.cache.Lookup(code)
			if !ok {
				mc.UnmappedCourses = append(mc.UnmappedCourses, code)
				if _, seen := unmapped[code]; !seen {
					unmapped[code] = struct{}{}
					out.UnmappedCourses = append(out.UnmappedCourses, code)
				}
				continue
			}
			mapped[code] = struct{}{}
			mc.CourseIds = append(mc.CourseIds, info.Id)
			mc.CourseDetails = append(mc.CourseDetails, catalog.CourseDetail{
				Code:    info.Code,
				Id:      info.Id,
				Title:   info.Title,
				Credits: info.Credits,
			})
			actual += info.Credits
		}

		if bucket.Kind == catalog.KIND_CATEGORY {
			categories++
			mc.ActualCredits = creditsPtr(actual)
			if mc.ExpectedCredits != nil && math.Abs(*mc.ExpectedCredits-actual) > creditTolerance {
				mc.CreditValidationIssue = true
				out.CreditValidationIssues = append(out.CreditValidationIssues, catalog.CreditValidationIssue{
					Category: key,
					Name:     bucket.Name,
					Expected: *mc.ExpectedCredits,
					Actual:   actual,
					Courses:  mc.CourseDetails,
				})
				m.tel.ReportDebug("credit mismatch", result.ProgramName, key, *mc.ExpectedCredits, actual)
			}
		}

		out.MappedRequirements[key] = mc
	}

	for _, code := range out.UnmappedCourses {
		if similar, ok := m.cache.Similar(code); ok {
			out.Suggestions[code] = similar
		}
	}

	out.TotalCourses = len(referenced)
	out.MappedCount = len(mapped)
	out.QualityScore = qualityScore(out.TotalCourses, out.MappedCount, len(out.UnmappedCourses), len(out.CreditValidationIssues), categories)

	if len(out.CreditValidationIssues) > 0 {
		m.tel.ReportWarning(report_mapper_credit_mismatch, result.ProgramName, len(out.CreditValidationIssues))
	}
	span.SetAttributes(
		attribute.Int("total", out.TotalCourses),
		attribute.Int("mapped", out.MappedCount),
		attribute.Int("score", out.QualityScore),
	)
	return out
}

// qualityScore starts from 100 and removes up to 40 points for unmapped courses
// and up to 20 for categories whose credits do not add up. A result that
// references no course at all scores 0.
func qualityScore(total, mapped, unmapped, issues, categories int) int {
	if total == 0 {
		return 0
	}

	score := 100.0
	score -= unmappedPenaltyWeight * float64(unmapped) / float64(total)
	if categories > 0 {
		score -= issuePenaltyWeight * float64(issues) / float64(categories)
	}
	if float64(mapped)/float64(total) > fullMappingThreshold {
		score += fullMappingBonus
	}

	return max(0, min(100, int(math.Round(score))))
}
