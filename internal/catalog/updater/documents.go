package updater

import (
	"encoding/json"
	"strings"
	"time"

	"catalog-ingest/internal/catalog"
)

// requirementsDocument is the shape of degree_programs.requirements, other
// features read it directly so fields must only ever be added.
type requirementsDocument struct {
	ProgramName           string                            `json:"programName"`
	ConcentrationName     string                            `json:"concentrationName,omitempty"`
	Categories            []string                          `json:"categories"`
	CategoryRequirements  map[string]catalog.MappedCategory `json:"categoryRequirements"`
	SelectionRequirements map[string]catalog.MappedCategory `json:"selectionRequirements"`
	FlexibleRequirements  map[string]catalog.MappedCategory `json:"flexibleRequirements"`
	Footnotes             map[int]catalog.Footnote          `json:"footnotes"`
	ExtractedCourses      []string                          `json:"extractedCourses"`
	TotalCourses          int                               `json:"totalCourses"`
	MappedCount           int                               `json:"mappedCount"`
}

type scrapingMetadata struct {
	SessionId              string                          `json:"sessionId"`
	SourceUrl              string                          `json:"sourceUrl"`
	Pattern                string                          `json:"pattern"`
	NavigationPath         []catalog.NavigationStep        `json:"navigationPath"`
	FirstScrapedAt         string                          `json:"firstScrapedAt"`
	LastScrapedAt          string                          `json:"lastScrapedAt"`
	ContentType            catalog.ContentType             `json:"contentType,omitempty"`
	ValidationScore        int                             `json:"validationScore"`
	QualityScore           int                             `json:"qualityScore"`
	CoursesFound           int                             `json:"coursesFound"`
	UnmappedCourses        []string                        `json:"unmappedCourses"`
	Suggestions            map[string]string               `json:"suggestions"`
	CreditValidationIssues []catalog.CreditValidationIssue `json:"creditValidationIssues"`
	Warnings               []string                        `json:"warnings"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func buildRequirements(rec ProgramRecord) (requirements, genEd string, totalCredits float64, err error) {
	doc := requirementsDocument{
		ProgramName:           rec.BaseName,
		ConcentrationName:     rec.ConcentrationName,
		Categories:            nonNil(rec.Parse.Keys(catalog.KIND_CATEGORY)),
		CategoryRequirements:  map[string]catalog.MappedCategory{},
		SelectionRequirements: map[string]catalog.MappedCategory{},
		FlexibleRequirements:  map[string]catalog.MappedCategory{},
		Footnotes:             rec.Parse.Footnotes,
		ExtractedCourses:      nonNil(rec.Parse.ExtractedCourses),
		TotalCourses:          rec.Mapping.TotalCourses,
		MappedCount:           rec.Mapping.MappedCount,
	}
	if doc.Footnotes == nil {
		doc.Footnotes = map[int]catalog.Footnote{}
	}
	genEdDoc := map[string]catalog.MappedCategory{}

	declaredTotal := 0.0
	for key, mc := range rec.Mapping.MappedRequirements {
		switch mc.Kind {
		case catalog.KIND_CATEGORY:
			doc.CategoryRequirements[key] = mc
			if mc.ExpectedCredits == nil {
				continue
			}
			if strings.Contains(key, "total") {
				declaredTotal = *mc.ExpectedCredits
				continue
			}
			totalCredits += *mc.ExpectedCredits
		case catalog.KIND_SELECTION:
			doc.SelectionRequirements[key] = mc
		case catalog.KIND_FLEXIBLE:
			doc.FlexibleRequirements[key] = mc
			if mc.ExpectedCredits != nil {
				totalCredits += *mc.ExpectedCredits
			}
		case catalog.KIND_GEN_ED:
			genEdDoc[key] = mc
		}
	}
	if declaredTotal > 0 {
		totalCredits = declaredTotal
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return "", "", 0, err
	}
	encodedGenEd, err := json.Marshal(genEdDoc)
	if err != nil {
		return "", "", 0, err
	}
	return string(encoded), string(encodedGenEd), totalCredits, nil
}

func buildMetadata(rec ProgramRecord, firstScrapedAt, now time.Time) (string, error) {
	meta := scrapingMetadata{
		SessionId:              rec.SessionId,
		SourceUrl:              rec.Program.Url,
		Pattern:                rec.Pattern,
		NavigationPath:         nonNil(rec.NavigationPath),
		FirstScrapedAt:         firstScrapedAt.UTC().Format(time.RFC3339),
		LastScrapedAt:          now.UTC().Format(time.RFC3339),
		QualityScore:           rec.Mapping.QualityScore,
		CoursesFound:           rec.Parse.CoursesFound,
		UnmappedCourses:        nonNil(rec.Mapping.UnmappedCourses),
		Suggestions:            rec.Mapping.Suggestions,
		CreditValidationIssues: nonNil(rec.Mapping.CreditValidationIssues),
		Warnings:               nonNil(rec.Parse.Warnings),
	}
	if meta.Suggestions == nil {
		meta.Suggestions = map[string]string{}
	}
	if rec.Validation != nil {
		meta.ContentType = rec.Validation.ContentType
		meta.ValidationScore = rec.Validation.QualityScore
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
