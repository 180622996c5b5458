// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/l3montree-dev/fod2sarif/internal/sarif"
	"github.com/l3montree-dev/fod2sarif/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func newSarifMarkdownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "sarif2markdown",
		Short:             "Convert an exported SARIF file into a markdown report",
		DisableAutoGenTag: true,
		Long: `Convert an exported SARIF file into a human-readable markdown report,
e.g. for a CI job summary.

Supports both summary and detailed output formats.`,
		Example: `  # Convert SARIF to markdown summary
  fod2sarif sarif2markdown -i fod.sarif

  # Generate detailed markdown report
  fod2sarif sarif2markdown -i fod.sarif --detailed

  # Append to the job summary of a GitHub workflow
  fod2sarif sarif2markdown -i fod.sarif -o $GITHUB_STEP_SUMMARY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputFile, _ := cmd.Flags().GetString("input")
			outputFile, _ := cmd.Flags().GetString("output")
			detailed, _ := cmd.Flags().GetBool("detailed")

			f, err := os.Open(inputFile)
			if err != nil {
				return errors.Wrap(err, "error reading file")
			}
			defer f.Close()

			doc, err := sarif.Parse(f)
			if err != nil {
				return errors.Wrap(err, "error parsing SARIF JSON")
			}

			var markdown string
			if detailed {
				markdown = generateDetailedMarkdown(doc)
			} else {
				markdown = generateSummaryMarkdown(doc)
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil { // nolint:gosec
					return errors.Wrap(err, "error writing file")
				}
				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Input SARIF JSON file")
	cmd.Flags().StringP("output", "o", "", "Output markdown file (default: stdout)")
	cmd.Flags().Bool("detailed", false, "List every finding grouped by severity")
	cmd.MarkFlagRequired("input") //nolint:errcheck

	return cmd
}

func writeRunHeader(sb *strings.Builder, run sarif.Run, suffix string) {
	sb.WriteString(fmt.Sprintf("# %s Security Scan Results%s\n\n", run.Tool.Driver.Name, suffix))
	if run.Tool.Driver.Version != "" {
		sb.WriteString(fmt.Sprintf("Engine and rule pack: %s\n\n", run.Tool.Driver.Version))
	}
}

func generateSummaryMarkdown(doc sarif.Document) string {
	var sb strings.Builder
	for _, run := range doc.Runs {
		writeRunHeader(&sb, run, "")

		counts := utils.Filter(countBySeverity(run), func(c severityCount) bool { return c.Results > 0 })
		if len(counts) == 0 {
			sb.WriteString("No findings.\n\n")
			continue
		}

		sb.WriteString("## Summary by Severity\n\n")
		sb.WriteString("| Severity | Rules | Results |\n")
		sb.WriteString("|----------|-------|---------|\n")
		for _, c := range counts {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", getSeverityBadge(c.Severity), c.Rules, c.Results))
		}
		sb.WriteString("\n")

		sb.WriteString("## Overall Statistics\n\n")
		sb.WriteString(fmt.Sprintf("- 📋 Rules: %d\n", len(run.Tool.Driver.Rules)))
		sb.WriteString(fmt.Sprintf("- 📊 Results: %d\n\n", len(run.Results)))
	}
	return sb.String()
}

func generateDetailedMarkdown(doc sarif.Document) string {
	var sb strings.Builder
	titleCaser := cases.Title(language.English)
	for _, run := range doc.Runs {
		writeRunHeader(&sb, run, " (Detailed)")

		rules := make(map[string]sarif.ReportingDescriptor, len(run.Tool.Driver.Rules))
		for _, rule := range run.Tool.Driver.Rules {
			rules[rule.ID] = rule
		}

		order, grouped := groupBySeverity(run)
		for _, severity := range order {
			results := grouped[severity]
			if len(results) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("## %s Severity Issues\n\n", titleCaser.String(severity)))
			sb.WriteString("| Category | Location | Message |\n")
			sb.WriteString("|----------|----------|---------|\n")
			for _, result := range results {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
					escapeMarkdown(rules[result.RuleID].Name),
					escapeMarkdown(extractLocation(result)),
					escapeMarkdown(result.Message.Text)))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func getSeverityBadge(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴 Critical"
	case "high":
		return "🟠 High"
	case "medium":
		return "🟡 Medium"
	case "low":
		return "🔵 Low"
	default:
		return severity
	}
}

func extractLocation(result sarif.Result) string {
	for _, loc := range result.Locations {
		if uri := loc.PhysicalLocation.ArtifactLocation.URI; uri != "" {
			return fmt.Sprintf("%s:%d", uri, loc.PhysicalLocation.Region.StartLine)
		}
	}
	return "unknown"
}

// escapeMarkdown keeps s inside a single table cell.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}
