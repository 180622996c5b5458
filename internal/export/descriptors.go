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

package export

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/l3montree-dev/fod2sarif/internal/htmltext"
	"github.com/l3montree-dev/fod2sarif/internal/sarif"
	"github.com/l3montree-dev/fod2sarif/pkg/fod"
)

const (
	// the index only reports a line, the column range is fixed
	startColumn = 1
	endColumn   = 80
)

func ruleID(vuln fod.Vulnerability, details fod.VulnerabilityDetails) string {
	if details.RuleID != "" {
		return details.RuleID
	}
	return strconv.Itoa(vuln.ID)
}

// issueURL points to the issue page of the vulnerability in the web ui.
func issueURL(webUI, vulnID string) string {
	if webUI == "" {
		return ""
	}
	return strings.TrimSuffix(webUI, "/") + "/redirect/Issues/" + url.PathEscape(vulnID)
}

func newRule(vuln fod.Vulnerability, details fod.VulnerabilityDetails, webUI string) sarif.ReportingDescriptor {
	explanation := htmltext.Convert(details.Explanation)
	if recommendations := htmltext.Convert(details.Recommendations); recommendations != "" {
		explanation = strings.TrimSpace(explanation + "\n\nRecommendations:\n\n" + recommendations)
	}
	link := issueURL(webUI, vuln.VulnID)

	helpText := explanation
	helpMarkdown := explanation
	if link != "" {
		helpText = strings.TrimSpace(helpText + "\n\nSee " + link + " for more information.")
		helpMarkdown = strings.TrimSpace(helpMarkdown + "\n\nSee [Fortify on Demand](" + link + ") for more information.")
	}

	rule := sarif.ReportingDescriptor{
		ID:               ruleID(vuln, details),
		Name:             vuln.Category,
		ShortDescription: &sarif.Text{Text: vuln.Category},
		FullDescription:  &sarif.Text{Text: htmltext.Convert(details.Summary)},
		HelpURI:          link,
		Properties:       &sarif.Properties{Tags: []string{vuln.SeverityString}},
	}
	if helpText != "" {
		rule.Help = &sarif.Text{Text: helpText, Markdown: helpMarkdown}
	}
	return rule
}

func newResult(vuln fod.Vulnerability, details fod.VulnerabilityDetails) sarif.Result {
	message := htmltext.Convert(details.Summary)
	if message == "" {
		message = vuln.Category
	}
	// sarif lines are 1-based
	line := max(vuln.LineNumber, 1)

	return sarif.Result{
		RuleID:  ruleID(vuln, details),
		Level:   sarif.LevelWarning,
		Message: sarif.Text{Text: message},
		Locations: []sarif.Location{
			{
				PhysicalLocation: sarif.PhysicalLocation{
					ArtifactLocation: sarif.ArtifactLocation{URI: vuln.PrimaryLocationFull},
					Region: sarif.Region{
						StartLine:   line,
						StartColumn: startColumn,
						EndLine:     line,
						EndColumn:   endColumn,
					},
				},
			},
		},
		PartialFingerprints: map[string]string{
			"issueInstanceId": vuln.InstanceID,
		},
	}
}
