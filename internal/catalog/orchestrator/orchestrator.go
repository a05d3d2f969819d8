// Package orchestrator runs every program of a catalog through detection,
// parsing, mapping and persistence, one program at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/catalog/updater"
	"catalog-ingest/internal/components/assert"
	"catalog-ingest/internal/components/chrono"
	"catalog-ingest/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("catalog.orchestrator")
	meter  = otel.Meter("catalog.orchestrator")
)

const (
	report_orchestrator_run             = "orchestrator.run"
	report_orchestrator_process_program = "orchestrator.process-program"
	report_orchestrator_programs        = "orchestrator.programs-processed"
)

const (
	REASON_DETECTION_FAILED     = "pattern detection failed"
	REASON_INSUFFICIENT_CONTENT = "insufficient course content"
	REASON_PERSISTENCE_FAILED   = "failed to persist program"
)

type Detector interface {
	Detect(ctx context.Context, programUrl string) catalog.DetectionResult
}

type Parser interface {
	Parse(ctx context.Context, content string) catalog.ParseResult
	ParseMultiLevel(ctx context.Context, order []string, pages map[string]catalog.SubPage) catalog.ParseResult
}

type Mapper interface {
	Map(ctx context.Context, result catalog.ParseResult) catalog.MappingResult
}

type Store interface {
	CreateSession(ctx context.Context, totalPrograms int) (catalog.SessionStats, error)
	UpdateSession(ctx context.Context, stats catalog.SessionStats, status string) updater.BestEffort
	UpdateProgram(ctx context.Context, rec updater.ProgramRecord) (int64, error)
	LogResult(ctx context.Context, sessionId string, result catalog.ProcessingResult) updater.BestEffort
}

type Options struct {
	// Delay is waited between two programs whatever the outcome of the first.
	Delay time.Duration
	// FlushEvery is how many programs are processed between session flushes.
	FlushEvery int
	// MinCourses is the number of extracted courses under which a program is
	// only partially scraped.
	MinCourses int
}

type Orchestrator struct {
	detector Detector
	parser   Parser
	mapper   Mapper
	store    Store
	time     chrono.API
	tel      telemetry.API
	opts     Options

	processed metric.Int64Counter
}

func NewOrchestrator(
	detector Detector,
	parser Parser,
	mapper Mapper,
	store Store,
	time chrono.API,
	tel telemetry.API,
	opts Options,
) Orchestrator {
	assert.NotNil(detector)
	assert.NotNil(parser)
	assert.NotNil(mapper)
	assert.NotNil(store)
	assert.NotNil(time)
	assert.NotNil(tel)

	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 10
	}
	if opts.MinCourses <= 0 {
		opts.MinCourses = 5
	}

	tel = telemetry.NewScopedAPI("orchestrator", tel)
	processed, err := meter.Int64Counter(
		"programs_processed",
		metric.WithDescription("Programs that went through the pipeline, by final status."),
	)
	if err != nil {
		tel.ReportBroken(report_orchestrator_programs, err)
	}

	return Orchestrator{
		detector:  detector,
		parser:    parser,
		mapper:    mapper,
		store:     store,
		time:      time,
		tel:       tel,
		opts:      opts,
		processed: processed,
	}
}

// RunResult is the outcome of a whole run, Results follows the order of the
// input programs.
type RunResult struct {
	Stats       catalog.SessionStats
	Results     []catalog.ProcessingResult
	Interrupted bool
}

// Run processes every program in order. A program failing, even by panicking,
// never stops the run. Cancelling ctx stops the run once the current program
// is done, the session is then flushed as interrupted.
func (o Orchestrator) Run(ctx context.Context, programs []catalog.Program) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	stats, err := o.store.CreateSession(ctx, len(programs))
	if err != nil {
		o.tel.ReportBroken(report_orchestrator_run, err)
		return RunResult{}, err
	}
	span.SetAttributes(attribute.String("session", stats.SessionId))

	run := RunResult{Results: make([]catalog.ProcessingResult, 0, len(programs))}
	for i, program := range programs {
		if ctx.Err() != nil {
			run.Interrupted = true
			break
		}

		// a program that has started is always finished, cancellation is only
		// observed between programs
		programCtx := context.WithoutCancel(ctx)

		result := o.processSafely(programCtx, stats.SessionId, program)
		stats.Record(result.Status)
		run.Results = append(run.Results, result)

		if outcome := o.store.LogResult(programCtx, stats.SessionId, result); outcome.Failed() {
			o.tel.ReportDebug("result was not logged", program.Name, outcome.Warning())
		}
		if o.processed != nil {
			o.processed.Add(programCtx, 1, metric.WithAttributes(attribute.String("status", string(result.Status))))
		}
		o.tel.ReportCount(report_orchestrator_programs, int64(stats.ProcessedPrograms))

		if (i+1)%o.opts.FlushEvery == 0 {
			o.store.UpdateSession(programCtx, stats, updater.SESSION_RUNNING)
		}

		if i < len(programs)-1 && !sleep(ctx, o.opts.Delay) {
			run.Interrupted = true
			break
		}
	}

	status := updater.SESSION_COMPLETED
	if run.Interrupted {
		status = updater.SESSION_INTERRUPTED
	}
	o.store.UpdateSession(context.WithoutCancel(ctx), stats, status)

	run.Stats = stats
	return run, nil
}

// sleep waits for d, it returns false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (o Orchestrator) processSafely(ctx context.Context, sessionId string, program catalog.Program) (result catalog.ProcessingResult) {
	start := o.time.Now()
	result = catalog.ProcessingResult{
		Program: program,
		Status:  catalog.STATUS_PENDING,
	}

	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			result.Err = fmt.Errorf("panic while %s: %w", result.Status, err)
			result.Message = "critical error"
			result.Status = catalog.STATUS_CRITICAL_ERROR
			result.Stack = string(debug.Stack())
			o.tel.ReportBroken(report_orchestrator_process_program, result.Err, program.Name, result.Stack)
		}
		result.Elapsed = o.time.Now().Sub(start)
	}()

	o.process(ctx, sessionId, &result)
	return result
}

func (o Orchestrator) transition(result *catalog.ProcessingResult, status catalog.ProcessingStatus) {
	result.Status = status
	o.tel.ReportDebug("transition", result.Program.Name, string(status))
}

func (o Orchestrator) process(ctx context.Context, sessionId string, result *catalog.ProcessingResult) {
	ctx, span := tracer.Start(ctx, "process")
	defer span.End()
	program := result.Program
	span.SetAttributes(attribute.String("program", program.Name))

	o.transition(result, catalog.STATUS_DETECTING)
	detection := o.detector.Detect(ctx, program.Url)
	result.NavigationPath = detection.NavigationPath
	result.Pattern = detection.Pattern
	if !detection.Success {
		result.Message = REASON_DETECTION_FAILED
		result.Err = detection.Err
		if result.Err == nil {
			result.Err = errors.New("no content detected")
		}
		o.transition(result, catalog.STATUS_FAILED)
		return
	}

	o.transition(result, catalog.STATUS_PARSING)
	multiLevel := len(detection.SubLinkOrder) > 0
	var parsed catalog.ParseResult
	if multiLevel {
		parsed = o.parser.ParseMultiLevel(ctx, detection.SubLinkOrder, detection.SubLinks)
		if !o.anyConcentration(parsed) && detection.Content != "" {
			o.tel.ReportWarning(report_orchestrator_process_program, program.Name, "no concentration parsed, using section content")
			parsed = o.parser.Parse(ctx, detection.Content)
		}
	} else {
		parsed = o.parser.Parse(ctx, detection.Content)
	}
	parsed.ProgramName = program.Name
	result.CoursesFound = parsed.CoursesFound

	if parsed.CoursesFound < o.opts.MinCourses {
		result.Message = fmt.Sprintf("%s: %d courses found", REASON_INSUFFICIENT_CONTENT, parsed.CoursesFound)
		o.tel.ReportWarning(report_orchestrator_process_program, program.Name, result.Message)
		o.transition(result, catalog.STATUS_PARTIAL)
		return
	}

	o.transition(result, catalog.STATUS_MAPPING)
	mapping := o.mapper.Map(ctx, parsed)
	result.MappedCourses = mapping.MappedCount
	result.QualityScore = mapping.QualityScore

	o.transition(result, catalog.STATUS_UPDATING)
	records := o.records(ctx, sessionId, program, detection, parsed, mapping)
	if len(records) == 0 {
		result.Message = fmt.Sprintf("%s: no concentration had enough courses", REASON_INSUFFICIENT_CONTENT)
		o.transition(result, catalog.STATUS_PARTIAL)
		return
	}

	for _, rec := range records {
		id, err := o.store.UpdateProgram(ctx, rec)
		if err != nil {
			result.Message = REASON_PERSISTENCE_FAILED
			result.Err = fmt.Errorf("update program %s: %w", rec.StoredName(), err)
			o.transition(result, catalog.STATUS_FAILED)
			return
		}
		result.ProgramIds = append(result.ProgramIds, id)
	}

	o.transition(result, catalog.STATUS_SUCCESS)
}

func (o Orchestrator) usable(c catalog.ConcentrationResult) bool {
	return c.Err == nil && c.Result.CoursesFound >= o.opts.MinCourses
}

// anyConcentration reports whether at least one concentration of a multi-level
// result can be persisted on its own.
func (o Orchestrator) anyConcentration(parsed catalog.ParseResult) bool {
	for _, name := range parsed.ConcentrationOrder {
		if o.usable(parsed.Concentrations[name]) {
			return true
		}
	}
	return false
}

// records builds what is persisted for a program, one record per concentration
// with enough courses for multi-level programs.
func (o Orchestrator) records(
	ctx context.Context,
	sessionId string,
	program catalog.Program,
	detection catalog.DetectionResult,
	parsed catalog.ParseResult,
	mapping catalog.MappingResult,
) []updater.ProgramRecord {
	base := updater.ProgramRecord{
		Program:        program,
		BaseName:       program.Name,
		SessionId:      sessionId,
		Pattern:        detection.Pattern,
		NavigationPath: detection.NavigationPath,
		Validation:     detection.Validation,
	}

	if len(parsed.ConcentrationOrder) == 0 {
		base.Parse = parsed
		base.Mapping = mapping
		return []updater.ProgramRecord{base}
	}

	var records []updater.ProgramRecord
	for _, name := range parsed.ConcentrationOrder {
		concentration := parsed.Concentrations[name]
		if !o.usable(concentration) {
			o.tel.ReportDebug("skipping concentration", program.Name, name)
			continue
		}

		sub := concentration.Result
		sub.ProgramName = program.Name
		sub.ConcentrationName = name

		rec := base
		rec.ConcentrationName = name
		rec.Validation = concentration.Validation
		rec.Parse = sub
		rec.Mapping = o.mapper.Map(ctx, sub)
		if concentration.Url != "" {
			rec.Program.Url = concentration.Url
		}
		records = append(records, rec)
	}
	return records
}
