package mapper

import (
	"context"
	"fmt"
	"slices"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/db"

	"github.com/antzucaro/matchr"
)

// minSuggestionSimilarity is the Jaro-Winkler similarity above which a known
// course is suggested for an unmapped code.
const minSuggestionSimilarity = 0.9

type CourseInfo struct {
	Id      int64
	Code    string
	Title   string
	Credits float64
}

// CourseCache is a read-only lookup table of known courses keyed by normalized
// code. It is built once before a run and never mutated afterwards, so it can
// be shared freely.
type CourseCache struct {
	byCode map[string]CourseInfo
	codes  []string
}

func NewCourseCache(courses []CourseInfo) CourseCache {
	cache := CourseCache{byCode: make(map[string]CourseInfo, len(courses))}
	for _, c := range courses {
		code, ok := catalog.NormalizeCourseCode(c.Code)
		if !ok {
			continue
		}
		c.Code = code
		if _, exists := cache.byCode[code]; !exists {
			cache.codes = append(cache.codes, code)
		}
		cache.byCode[code] = c
	}
	slices.Sort(cache.codes)
	return cache
}

type CourseSource interface {
	ListCourses(ctx context.Context) ([]db.Course, error)
}

// LoadCourseCache reads every known course from the store.
func LoadCourseCache(ctx context.Context, source CourseSource) (CourseCache, error) {
	rows, err := source.ListCourses(ctx)
	if err != nil {
		return CourseCache{}, fmt.Errorf("load course cache: %w", err)
	}
	courses := make([]CourseInfo, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, CourseInfo{
			Id:      r.ID,
			Code:    r.Code,
			Title:   r.Title,
			Credits: r.Credits,
		})
	}
	return NewCourseCache(courses), nil
}

func (c CourseCache) Len() int {
	return len(c.codes)
}

func (c CourseCache) Lookup(code string) (CourseInfo, bool) {
	normalized, ok := catalog.NormalizeCourseCode(code)
	if !ok {
		return CourseInfo{}, false
	}
	info, ok := c.byCode[normalized]
	return info, ok
}

// Similar returns the known code most similar to code, a candidate sharing the
// department prefix of code is preferred over a closer one that does not.
func (c CourseCache) Similar(code string) (string, bool) {
	prefix := catalog.CoursePrefix(code)

	var best, bestSamePrefix string
	var bestScore, bestSamePrefixScore float64
	for _, candidate := range c.codes {
		if candidate == code {
			continue
		}
		similarity := matchr.JaroWinkler(code, candidate, false)
		if similarity < minSuggestionSimilarity {
			continue
		}
		if similarity > bestScore {
			best, bestScore = candidate, similarity
		}
		if catalog.CoursePrefix(candidate) == prefix && similarity > bestSamePrefixScore {
			bestSamePrefix, bestSamePrefixScore = candidate, similarity
		}
	}

	if bestSamePrefix != "" {
		return bestSamePrefix, true
	}
	return best, best != ""
}
