package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// Recorder is an API that keeps every report in memory, it is meant for
// asserting on reported failures and warnings in tests.
type Recorder struct {
	mu      *sync.Mutex
	reports *[]Report
}

func NewRecorder() Recorder {
	return Recorder{
		mu:      &sync.Mutex{},
		reports: &[]Report{},
	}
}

func (r Recorder) add(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.reports = append(*r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns all the reports of a given kind ("broken", "warning", "debug", "count")
// whose id contains the given substring.
func (r Recorder) Reports(kind, idContains string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, rep := range *r.reports {
		if rep.Kind == kind && strings.Contains(rep.Id, idContains) {
			out = append(out, rep)
		}
	}
	return out
}
