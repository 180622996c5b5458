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

package fod

const (
	StaticAnalysisCompleted = "Completed"
	ScanTypeStatic          = "Static"
)

// Release is the subset of /api/v3/releases/{id} the exporter relies on.
type Release struct {
	ReleaseName              string `json:"releaseName"`
	ApplicationName          string `json:"applicationName"`
	StaticAnalysisStatusType string `json:"staticAnalysisStatusType"`
	Suspended                bool   `json:"suspended"`
	CurrentStaticScanID      int    `json:"currentStaticScanId"`

	Critical   int `json:"critical"`
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
	IssueCount int `json:"issueCount"`
}

func (r Release) Completed() bool {
	return r.StaticAnalysisStatusType == StaticAnalysisCompleted
}

type StaticScanSummaryDetails struct {
	EngineVersion   string `json:"engineVersion"`
	RulePackVersion string `json:"rulePackVersion"`
}

type ScanSummary struct {
	ScanID                   int                      `json:"scanId"`
	StaticScanSummaryDetails StaticScanSummaryDetails `json:"staticScanSummaryDetails"`
}

// Vulnerability is a single item of the paginated vulnerability index.
type Vulnerability struct {
	ID                  int    `json:"id"`
	VulnID              string `json:"vulnId"`
	InstanceID          string `json:"instanceId"`
	Category            string `json:"category"`
	Severity            int    `json:"severity"`
	SeverityString      string `json:"severityString"`
	ScanType            string `json:"scantype"`
	PrimaryLocationFull string `json:"primaryLocationFull"`
	LineNumber          int    `json:"lineNumber"`
}

func (v Vulnerability) IsStatic() bool {
	return v.ScanType == ScanTypeStatic
}

type VulnerabilityPage struct {
	Items      []Vulnerability `json:"items"`
	TotalCount int             `json:"totalCount"`
}

type VulnerabilityDetails struct {
	RuleID          string `json:"ruleId"`
	Summary         string `json:"summary"`
	Explanation     string `json:"explanation"`
	Recommendations string `json:"recommendations"`
}

type VulnerabilityQuery struct {
	Filters string
	Offset  int
	Limit   int
}
