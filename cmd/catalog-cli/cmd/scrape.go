package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"catalog-ingest/internal/catalog/mapper"
	"catalog-ingest/internal/catalog/orchestrator"
	"catalog-ingest/internal/catalog/parser"
	"catalog-ingest/internal/catalog/updater"
	"catalog-ingest/internal/components/chrono"
	"catalog-ingest/internal/components/notify"
	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/internal/db"
	"catalog-ingest/lib/serviceutil"
	libtelemetry "catalog-ingest/lib/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape every program of the catalog and store its requirements.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := serviceutil.SignalContext(cmd.Context())
		defer stop()

		otel, err := libtelemetry.SetupFromEnv(ctx, "catalog-cli")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		defer otel.Shutdown(context.WithoutCancel(ctx))
		libtelemetry.InstrumentPerfStats(ctx, time.Second*30)

		tel := telemetry.SlogAPI{}

		sqldb, err := openDB(ctx, config)
		if err != nil {
			return err
		}
		defer sqldb.Close()
		qry := db.New(sqldb)

		r := newRenderer(config, tel)
		defer r.Close()

		all, err := resolvePrograms(ctx, r, config)
		if err != nil {
			return err
		}
		selected := selectPrograms(all, programs, limit)
		if len(selected) == 0 {
			return fmt.Errorf("no programs to scrape (%d known)", len(all))
		}

		cache, err := mapper.LoadCourseCache(ctx, qry)
		if err != nil {
			return err
		}
		if cache.Len() == 0 {
			tel.ReportWarning("cli.scrape", "course table is empty, every course will be unmapped, see `catalog-cli courses import`")
		}

		clock, err := chrono.NewStandardImpl("")
		if err != nil {
			return err
		}

		orch := orchestrator.NewOrchestrator(
			newDetector(r, config, tel),
			parser.NewParser(tel),
			mapper.NewMapper(cache, tel),
			updater.NewUpdater(qry, db.NewMakeTx(sqldb), clock, tel),
			clock,
			tel,
			orchestrator.Options{
				Delay:      config.Run.Delay(),
				FlushEvery: config.Run.FlushEvery,
				MinCourses: config.Run.MinCourses,
			},
		)

		run, err := orch.Run(ctx, selected)
		if err != nil {
			return err
		}
		orchestrator.Summary(os.Stdout, run)

		outcome := notify.SendSummary(context.WithoutCancel(ctx), config.Notify, config.Notify.Send, run, tel)
		if outcome.Failed() {
			fmt.Fprintln(os.Stderr, "summary e-mail was not sent:", outcome.Warning())
		}
		return nil
	},
}
