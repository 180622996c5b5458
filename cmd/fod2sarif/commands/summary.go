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
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/l3montree-dev/fod2sarif/internal/sarif"
	"github.com/l3montree-dev/fod2sarif/utils"
)

// Fortify severities from most to least severe
var severityOrder = []string{"critical", "high", "medium", "low"}

const unknownSeverity = "unknown"

type severityCount struct {
	Severity string
	Rules    int
	Results  int
}

// severityByRule maps rule ids to the severity tag the exporter attaches to every rule.
func severityByRule(run sarif.Run) map[string]string {
	severities := make(map[string]string, len(run.Tool.Driver.Rules))
	for _, rule := range run.Tool.Driver.Rules {
		severity := unknownSeverity
		if rule.Properties != nil && len(rule.Properties.Tags) > 0 && rule.Properties.Tags[0] != "" {
			severity = strings.ToLower(rule.Properties.Tags[0])
		}
		severities[rule.ID] = severity
	}
	return severities
}

func resultSeverity(severities map[string]string, result sarif.Result) string {
	if severity, ok := severities[result.RuleID]; ok {
		return severity
	}
	return unknownSeverity
}

// groupBySeverity returns the results of run grouped by severity, ordered from critical to low.
// Severities outside the known ones come last.
func groupBySeverity(run sarif.Run) ([]string, map[string][]sarif.Result) {
	severities := severityByRule(run)
	grouped := make(map[string][]sarif.Result)
	for _, result := range run.Results {
		severity := resultSeverity(severities, result)
		grouped[severity] = append(grouped[severity], result)
	}

	order := slices.Clone(severityOrder)
	var others []string
	for severity := range grouped {
		if !slices.Contains(order, severity) {
			others = append(others, severity)
		}
	}
	slices.Sort(others)
	return append(order, others...), grouped
}

func countBySeverity(run sarif.Run) []severityCount {
	order, grouped := groupBySeverity(run)

	counts := make([]severityCount, 0, len(order))
	for _, severity := range order {
		results := grouped[severity]
		counts = append(counts, severityCount{
			Severity: severity,
			Results:  len(results),
			Rules:    len(utils.UniqBy(results, func(r sarif.Result) string { return r.RuleID })),
		})
	}
	return counts
}

func printSummary(w io.Writer, doc sarif.Document) {
	for _, run := range doc.Runs {
		counts := countBySeverity(run)

		// a table title wraps at the table width, long versions would be split
		fmt.Fprintln(w, strings.TrimSpace(run.Tool.Driver.Name+" "+run.Tool.Driver.Version))

		tw := table.NewWriter()
		tw.AppendHeader(table.Row{"Severity", "Rules", "Results"})
		tw.AppendRows(utils.Map(counts, func(c severityCount) table.Row {
			return table.Row{c.Severity, c.Rules, c.Results}
		}))
		tw.AppendFooter(table.Row{"Total", len(run.Tool.Driver.Rules), len(run.Results)})

		fmt.Fprintln(w, tw.Render())
	}
}
