package cmd

import (
	"context"
	"fmt"
	"os"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/db"

	"github.com/spf13/cobra"
	"github.com/titanous/json5"
)

func init() {
	coursesCmd.AddCommand(coursesImportCmd)
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Manage the table of known courses that requirements are mapped against.",
}

var coursesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Upsert courses from a json5 list of {code, title, credits}.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sqldb, err := openDB(cmd.Context(), config)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		imported, skipped, err := importCourses(cmd.Context(), db.NewMakeTx(sqldb), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("imported %d courses, skipped %d invalid codes\n", imported, skipped)
		return nil
	},
}

type courseEntry struct {
	Code    string  `json:"code"`
	Title   string  `json:"title"`
	Credits float64 `json:"credits"`
}

func importCourses(ctx context.Context, makeTx db.MakeTx, path string) (imported, skipped int, err error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	var entries []courseEntry
	err = json5.Unmarshal(contents, &entries)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %s: %w", path, err)
	}

	tx, discard, commit, err := makeTx(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer discard()

	for _, e := range entries {
		code, ok := catalog.NormalizeCourseCode(e.Code)
		if !ok {
			skipped++
			continue
		}
		err = tx.UpsertCourse(ctx, db.UpsertCourseParams{
			Code:    code,
			Title:   e.Title,
			Credits: e.Credits,
		})
		if err != nil {
			return 0, 0, fmt.Errorf("upsert %s: %w", code, err)
		}
		imported++
	}
	return imported, skipped, commit()
}
