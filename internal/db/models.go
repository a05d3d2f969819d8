package db

import (
	"database/sql"
)

type Course struct {
	ID      int64
	Code    string
	Title   string
	Credits float64
}

type DegreeProgram struct {
	ID                int64
	Name              string
	BaseName          string
	ConcentrationName string
	DegreeType        string
	Url               string
	TotalCredits      float64
	Requirements      string
	GenEdRequirements string
	ScrapingMetadata  string
	CreatedAt         int64
	UpdatedAt         int64
}

type ProgramFootnote struct {
	ID            int64
	ProgramID     int64
	Number        int64
	Content       string
	RuleType      string
	MappedCourses string
}

type ScrapingSession struct {
	SessionID          string
	Status             string
	StartedAt          int64
	FinishedAt         sql.NullInt64
	TotalPrograms      int64
	ProcessedPrograms  int64
	SuccessfulPrograms int64
	PartialPrograms    int64
	FailedPrograms     int64
}

type ScrapingResult struct {
	ID             int64
	SessionID      string
	ProgramName    string
	Url            string
	Status         string
	Pattern        string
	CoursesFound   int64
	MappedCourses  int64
	QualityScore   int64
	ElapsedMs      int64
	Message        string
	NavigationPath string
	CreatedAt      int64
}
