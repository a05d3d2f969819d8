package orchestrator

import (
	"fmt"
	"io"

	"catalog-ingest/internal/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Summary writes the counters of a run followed by every program that did not
// succeed and the reason it did not.
func Summary(w io.Writer, run RunResult) {
	stats := run.Stats

	counts := table.NewWriter()
	counts.SetOutputMirror(w)
	counts.AppendHeader(table.Row{"Session", "Total", "Processed", "Successful", "Partial", "Failed"})
	counts.AppendRow(table.Row{
		stats.SessionId,
		stats.TotalPrograms,
		stats.ProcessedPrograms,
		stats.SuccessfulPrograms,
		stats.PartialPrograms,
		stats.FailedPrograms,
	})
	counts.SetStyle(table.StyleRounded)
	counts.Render()

	if run.Interrupted {
		fmt.Fprintf(w, "run interrupted after %d of %d programs\n", stats.ProcessedPrograms, stats.TotalPrograms)
	}

	issues := table.NewWriter()
	issues.SetOutputMirror(w)
	issues.AppendHeader(table.Row{"Program", "Status", "Courses", "Reason"})
	for _, res := range run.Results {
		if res.Status == catalog.STATUS_SUCCESS {
			continue
		}
		issues.AppendRow(table.Row{res.Program.Name, res.Status, res.CoursesFound, Reason(res)})
	}
	if issues.Length() == 0 {
		return
	}
	issues.SetStyle(table.StyleRounded)
	issues.Render()
}

// Reason is the one line explanation of a result.
func Reason(res catalog.ProcessingResult) string {
	switch {
	case res.Message != "" && res.Err != nil:
		return fmt.Sprintf("%s: %v", res.Message, res.Err)
	case res.Err != nil:
		return res.Err.Error()
	default:
		return res.Message
	}
}
