package cmd

import (
	"fmt"
	"os"
	"strings"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/components/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect <url>",
	Short: "Diagnose how the curriculum of a single program page is found.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tel := telemetry.SlogAPI{}
		r := newRenderer(config, tel)
		defer r.Close()

		result := newDetector(r, config, tel).Detect(cmd.Context(), args[0])
		renderDetection(result)
		if !result.Success {
			return fmt.Errorf("detection failed: %w", result.Err)
		}
		return nil
	},
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderDetection(result catalog.DetectionResult) {
	path := newTable()
	path.AppendHeader(table.Row{"#", "Step", "Url"})
	for i, step := range result.NavigationPath {
		path.AppendRow(table.Row{i + 1, step.Type, step.Url})
	}
	path.Render()

	if result.Validation != nil {
		renderValidation(result.Pattern, result.Validation)
	}

	if len(result.SubLinkOrder) == 0 {
		return
	}
	subPages := newTable()
	subPages.AppendHeader(table.Row{"Concentration", "Courses", "Content", "Url"})
	for _, name := range result.SubLinkOrder {
		page := result.SubLinks[name]
		if page.Err != nil {
			subPages.AppendRow(table.Row{name, "-", page.Err.Error(), page.Url})
			continue
		}
		subPages.AppendRow(table.Row{name, page.Validation.CourseCount, page.Validation.ContentType, page.Url})
	}
	subPages.Render()
}

func renderValidation(pattern string, v *catalog.ContentValidation) {
	t := newTable()
	t.AppendHeader(table.Row{"Pattern", "Valid", "Courses", "Content", "Score", "Checks"})

	var checks []string
	if v.Checks.HasGenEd {
		checks = append(checks, "gen-ed")
	}
	if v.Checks.HasThreads {
		checks = append(checks, "threads")
	}
	if v.Checks.HasCreditInfo {
		checks = append(checks, fmt.Sprintf("%d credit mentions", v.Checks.CreditMentions))
	}
	checks = append(checks, fmt.Sprintf("%d prefixes", v.Checks.PrefixDiversity))
	checks = append(checks, v.Checks.SuspiciousPatterns...)

	t.AppendRow(table.Row{pattern, v.IsValid, v.CourseCount, v.ContentType, v.QualityScore, strings.Join(checks, ", ")})
	t.Render()
}
