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
	"context"
	"log/slog"
	"strings"

	"github.com/l3montree-dev/fod2sarif/internal/ratelimit"
	"github.com/l3montree-dev/fod2sarif/internal/sarif"
	"github.com/l3montree-dev/fod2sarif/pkg/fod"
	"github.com/pkg/errors"
)

// DefaultPageSize is the number of index items requested per page.
const DefaultPageSize = 50

// ErrNoData is returned by the probe if the release has no completed static scan or is suspended.
var ErrNoData = errors.New("release has no exportable static analysis results")

// API is the part of the Fortify on Demand api the exporter needs. It is implemented by *fod.Client.
type API interface {
	GetRelease(ctx context.Context, releaseID string) (fod.Release, error)
	GetScanSummary(ctx context.Context, scanID int) (fod.ScanSummary, error)
	ListVulnerabilities(ctx context.Context, releaseID string, q fod.VulnerabilityQuery) (fod.VulnerabilityPage, error)
	GetVulnerabilityDetails(ctx context.Context, releaseID, vulnID string) (fod.VulnerabilityDetails, error)
}

type Options struct {
	ReleaseID string
	// WebUI is the url users open in the browser, used to link rules to their issue page
	WebUI string
	// PageSize defaults to DefaultPageSize
	PageSize int
	// Concurrency bounds the detail requests started per page, defaults to 1
	Concurrency int
	RunGUID     string
}

// Exporter turns the static findings of a single release into a sarif document.
// An Exporter is meant to be used for a single Export call.
type Exporter struct {
	api       API
	limiter   *ratelimit.Limiter
	assembler *sarif.Assembler
	opts      Options
}

func NewExporter(api API, limiter *ratelimit.Limiter, opts Options) *Exporter {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Exporter{
		api:       api,
		limiter:   limiter,
		assembler: sarif.NewAssembler(),
		opts:      opts,
	}
}

// Export probes the release, pages through the selected vulnerabilities and renders the document.
// A release without data still yields a well-formed, empty document.
func (e *Exporter) Export(ctx context.Context) (sarif.Document, error) {
	release, summary, err := e.probe(ctx)
	if errors.Is(err, ErrNoData) {
		return e.assembler.Render(sarif.RunMetadata{GUID: e.opts.RunGUID}), nil
	}
	if err != nil {
		return sarif.Document{}, err
	}

	meta := sarif.RunMetadata{
		DriverVersion: driverVersion(summary),
		GUID:          e.opts.RunGUID,
	}

	selection := SelectSeverities(release)
	filters, ok := selection.Filter()
	if !ok {
		slog.Warn("too many issues in every severity to export them, skipping vulnerabilities", "releaseId", e.opts.ReleaseID, "critical", release.Critical, "limit", MaxIssuesPerQuery)
		return e.assembler.Render(meta), nil
	}
	if !selection.Low {
		slog.Info("release exceeds the issue limit, exporting a subset of severities", "releaseId", e.opts.ReleaseID, "issueCount", release.IssueCount, "filters", filters)
	}

	if err := e.paginate(ctx, filters); err != nil {
		return sarif.Document{}, err
	}

	rules, results := e.assembler.Len()
	slog.Info("collected vulnerabilities", "releaseId", e.opts.ReleaseID, "results", results, "rules", rules)
	return e.assembler.Render(meta), nil
}

func driverVersion(summary fod.ScanSummary) string {
	return strings.TrimSpace(summary.StaticScanSummaryDetails.EngineVersion + " " + summary.StaticScanSummaryDetails.RulePackVersion)
}

func (e *Exporter) probe(ctx context.Context) (fod.Release, fod.ScanSummary, error) {
	release, err := e.api.GetRelease(ctx, e.opts.ReleaseID)
	if err != nil {
		return fod.Release{}, fod.ScanSummary{}, err
	}

	if !release.Completed() {
		slog.Warn("The scan is incomplete", "releaseId", e.opts.ReleaseID, "status", release.StaticAnalysisStatusType)
		return release, fod.ScanSummary{}, ErrNoData
	}
	if release.Suspended {
		slog.Warn("The release is suspended", "releaseId", e.opts.ReleaseID)
		return release, fod.ScanSummary{}, ErrNoData
	}

	summary, err := e.api.GetScanSummary(ctx, release.CurrentStaticScanID)
	if err != nil {
		return fod.Release{}, fod.ScanSummary{}, err
	}

	slog.Debug("probed release", "releaseId", e.opts.ReleaseID, "application", release.ApplicationName, "release", release.ReleaseName, "scanId", release.CurrentStaticScanID, "issueCount", release.IssueCount,
		"critical", release.Critical, "high", release.High, "medium", release.Medium, "low", release.Low)
	return release, summary, nil
}
