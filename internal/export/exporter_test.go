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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/l3montree-dev/fod2sarif/internal/ratelimit"
	"github.com/l3montree-dev/fod2sarif/internal/sarif"
	"github.com/l3montree-dev/fod2sarif/pkg/fod"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu sync.Mutex

	release    fod.Release
	releaseErr error
	summary    fod.ScanSummary
	summaryErr error

	vulns      []fod.Vulnerability
	pageErr    error
	detailErrs map[string]error

	queries     []fod.VulnerabilityQuery
	detailCalls []string
}

func (f *fakeAPI) GetRelease(ctx context.Context, releaseID string) (fod.Release, error) {
	return f.release, f.releaseErr
}

func (f *fakeAPI) GetScanSummary(ctx context.Context, scanID int) (fod.ScanSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeAPI) ListVulnerabilities(ctx context.Context, releaseID string, q fod.VulnerabilityQuery) (fod.VulnerabilityPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.pageErr != nil {
		return fod.VulnerabilityPage{}, f.pageErr
	}

	start := min(q.Offset, len(f.vulns))
	end := min(q.Offset+q.Limit, len(f.vulns))
	return fod.VulnerabilityPage{Items: f.vulns[start:end], TotalCount: len(f.vulns)}, nil
}

func (f *fakeAPI) GetVulnerabilityDetails(ctx context.Context, releaseID, vulnID string) (fod.VulnerabilityDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls = append(f.detailCalls, vulnID)
	if err := f.detailErrs[vulnID]; err != nil {
		return fod.VulnerabilityDetails{}, err
	}
	return fod.VulnerabilityDetails{
		RuleID:      "rule-" + vulnID,
		Summary:     "<p>Summary of <b>" + vulnID + "</b></p>",
		Explanation: "Explanation",
	}, nil
}

func completedRelease(critical, high, medium, low int) fod.Release {
	return fod.Release{
		StaticAnalysisStatusType: fod.StaticAnalysisCompleted,
		CurrentStaticScanID:      7,
		Critical:                 critical,
		High:                     high,
		Medium:                   medium,
		Low:                      low,
		IssueCount:               critical + high + medium + low,
	}
}

func staticVulns(n int) []fod.Vulnerability {
	vulns := make([]fod.Vulnerability, n)
	for i := range vulns {
		vulns[i] = fod.Vulnerability{
			ID:                  i,
			VulnID:              fmt.Sprintf("vuln-%d", i),
			InstanceID:          fmt.Sprintf("instance-%d", i),
			Category:            "SQL Injection",
			SeverityString:      "Critical",
			ScanType:            fod.ScanTypeStatic,
			PrimaryLocationFull: "src/main/java/App.java",
			LineNumber:          i + 1,
		}
	}
	return vulns
}

func newTestExporter(t *testing.T, api API) *Exporter {
	t.Helper()
	limiter, err := ratelimit.New(1000, time.Millisecond, 4)
	require.NoError(t, err)
	return NewExporter(api, limiter, Options{
		ReleaseID:   "42",
		WebUI:       "https://ams.fortify.com",
		Concurrency: 4,
		RunGUID:     "guid",
	})
}

// captureLogs redirects the default logger for the duration of the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(original) })
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func assertRulesForResults(t *testing.T, run sarif.Run) {
	t.Helper()
	ids := make(map[string]int)
	for _, rule := range run.Tool.Driver.Rules {
		ids[rule.ID]++
	}
	for _, result := range run.Results {
		assert.Equal(t, 1, ids[result.RuleID], "rule %s", result.RuleID)
	}
}

func TestExport(t *testing.T) {
	t.Run("completed release with three vulnerabilities", func(t *testing.T) {
		api := &fakeAPI{
			release: completedRelease(1, 1, 1, 0),
			summary: fod.ScanSummary{StaticScanSummaryDetails: fod.StaticScanSummaryDetails{EngineVersion: "24.2.0.0150", RulePackVersion: "2024.3.0.0007"}},
			vulns:   staticVulns(3),
		}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)

		require.Len(t, doc.Runs, 1)
		run := doc.Runs[0]
		assert.Equal(t, "Fortify on Demand", run.Tool.Driver.Name)
		assert.Equal(t, "24.2.0.0150 2024.3.0.0007", run.Tool.Driver.Version)
		assert.Len(t, run.Results, 3)
		assert.Len(t, run.Tool.Driver.Rules, 3)
		assertRulesForResults(t, run)

		require.Len(t, api.queries, 1)
		assert.Equal(t, fod.VulnerabilityQuery{Filters: "scantype:Static+severityString:Critical|High|Medium|Low", Offset: 0, Limit: 50}, api.queries[0])
	})

	t.Run("should build results and rules from the index item and its details", func(t *testing.T) {
		api := &fakeAPI{
			release: completedRelease(1, 0, 0, 0),
			vulns:   staticVulns(1),
		}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)

		require.Len(t, doc.Runs[0].Results, 1)
		result := doc.Runs[0].Results[0]
		assert.Equal(t, "rule-vuln-0", result.RuleID)
		assert.Equal(t, "warning", result.Level)
		assert.Equal(t, "Summary of vuln-0", result.Message.Text)
		assert.Equal(t, map[string]string{"issueInstanceId": "instance-0"}, result.PartialFingerprints)
		require.Len(t, result.Locations, 1)
		assert.Equal(t, "src/main/java/App.java", result.Locations[0].PhysicalLocation.ArtifactLocation.URI)
		assert.Equal(t, sarif.Region{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 80}, result.Locations[0].PhysicalLocation.Region)

		require.Len(t, doc.Runs[0].Tool.Driver.Rules, 1)
		rule := doc.Runs[0].Tool.Driver.Rules[0]
		assert.Equal(t, "rule-vuln-0", rule.ID)
		assert.Equal(t, "SQL Injection", rule.ShortDescription.Text)
		assert.Equal(t, "Summary of vuln-0", rule.FullDescription.Text)
		assert.Equal(t, []string{"Critical"}, rule.Properties.Tags)
		assert.Contains(t, rule.Help.Text, "https://ams.fortify.com/redirect/Issues/vuln-0")
		assert.Contains(t, rule.Help.Markdown, "[Fortify on Demand](https://ams.fortify.com/redirect/Issues/vuln-0)")
	})

	t.Run("should deduplicate rules shared by several results", func(t *testing.T) {
		api := &sharedRuleAPI{fakeAPI: fakeAPI{release: completedRelease(5, 0, 0, 0), vulns: staticVulns(5)}}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.Len(t, doc.Runs[0].Results, 5)
		assert.Len(t, doc.Runs[0].Tool.Driver.Rules, 1)
		assertRulesForResults(t, doc.Runs[0])
	})

	t.Run("incomplete scan yields an empty document", func(t *testing.T) {
		logs := captureLogs(t)
		api := &fakeAPI{
			release: fod.Release{StaticAnalysisStatusType: "InProgress", IssueCount: 500},
			vulns:   staticVulns(3),
		}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.Empty(t, doc.Runs[0].Results)
		assert.Empty(t, doc.Runs[0].Tool.Driver.Rules)
		assert.NotNil(t, doc.Runs[0].Results)
		assert.Empty(t, doc.Runs[0].Tool.Driver.Version)
		assert.Empty(t, api.queries)
		assert.Contains(t, logs.String(), "The scan is incomplete")
	})

	t.Run("suspended release yields an empty document", func(t *testing.T) {
		logs := captureLogs(t)
		release := completedRelease(1, 0, 0, 0)
		release.Suspended = true
		api := &fakeAPI{release: release, vulns: staticVulns(1)}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.Empty(t, doc.Runs[0].Results)
		assert.Empty(t, api.queries)
		assert.Contains(t, logs.String(), "The release is suspended")
	})

	t.Run("high totals restrict the severities", func(t *testing.T) {
		api := &fakeAPI{
			release: completedRelease(200, 300, 600, 3900),
			vulns:   staticVulns(500),
		}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)

		require.Len(t, api.queries, 10)
		for i, q := range api.queries {
			assert.Equal(t, "scantype:Static+severityString:Critical|High", q.Filters)
			assert.Equal(t, i*50, q.Offset)
			assert.Equal(t, 50, q.Limit)
		}
		assert.Len(t, doc.Runs[0].Results, 500)
	})

	t.Run("empty selection skips paging", func(t *testing.T) {
		api := &fakeAPI{release: completedRelease(1001, 0, 0, 5000)}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.Empty(t, api.queries)
		assert.Empty(t, doc.Runs[0].Results)
	})

	t.Run("should fetch details for every item across pages", func(t *testing.T) {
		api := &fakeAPI{release: completedRelease(0, 0, 0, 123), vulns: staticVulns(123)}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.Len(t, api.queries, 3)
		assert.Len(t, api.detailCalls, 123)
		assert.Len(t, doc.Runs[0].Results, 123)
	})

	t.Run("should finish all details of a page before requesting the next page", func(t *testing.T) {
		api := &pageOrderAPI{fakeAPI: fakeAPI{release: completedRelease(0, 0, 0, 120), vulns: staticVulns(120)}}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.Len(t, api.queries, 3)
		assert.Len(t, doc.Runs[0].Results, 120)
		assert.Zero(t, api.overlaps.Load(), "a page was requested while details were in flight")
		assert.Greater(t, api.maxInflight.Load(), int32(1), "details of a page should run concurrently")
	})

	t.Run("should skip vulnerabilities which are not static", func(t *testing.T) {
		vulns := staticVulns(3)
		vulns[1].ScanType = "Dynamic"
		api := &fakeAPI{release: completedRelease(0, 0, 0, 3), vulns: vulns}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.NotContains(t, api.detailCalls, "vuln-1")
		assert.Len(t, api.detailCalls, 2)
		assert.Len(t, doc.Runs[0].Results, 2)
		for _, result := range doc.Runs[0].Results {
			assert.NotEqual(t, "rule-vuln-1", result.RuleID)
		}
	})

	t.Run("a failing detail request drops only that vulnerability", func(t *testing.T) {
		logs := captureLogs(t)
		api := &fakeAPI{
			release:    completedRelease(0, 0, 50, 0),
			vulns:      staticVulns(50),
			detailErrs: map[string]error{"vuln-13": &fod.HTTPError{StatusCode: 500, Message: "internal server error"}},
		}

		doc, err := newTestExporter(t, api).Export(context.Background())
		require.NoError(t, err)
		assert.Len(t, doc.Runs[0].Results, 49)
		assertRulesForResults(t, doc.Runs[0])
		assert.Equal(t, 1, strings.Count(logs.String(), "Ignoring vulnerability vuln-13"))
		assert.Contains(t, logs.String(), "internal server error - Ignoring vulnerability vuln-13")
	})

	t.Run("release errors are fatal", func(t *testing.T) {
		api := &fakeAPI{releaseErr: errors.New("unauthorized")}
		_, err := newTestExporter(t, api).Export(context.Background())
		assert.Error(t, err)
	})

	t.Run("scan summary errors are fatal", func(t *testing.T) {
		api := &fakeAPI{release: completedRelease(1, 0, 0, 0), summaryErr: errors.New("not found")}
		_, err := newTestExporter(t, api).Export(context.Background())
		assert.Error(t, err)
		assert.Empty(t, api.queries)
	})

	t.Run("paging errors are fatal", func(t *testing.T) {
		api := &fakeAPI{release: completedRelease(1, 0, 0, 0), pageErr: errors.New("bad gateway")}
		_, err := newTestExporter(t, api).Export(context.Background())
		assert.Error(t, err)
	})
}

type sharedRuleAPI struct {
	fakeAPI
}

func (s *sharedRuleAPI) GetVulnerabilityDetails(ctx context.Context, releaseID, vulnID string) (fod.VulnerabilityDetails, error) {
	details, err := s.fakeAPI.GetVulnerabilityDetails(ctx, releaseID, vulnID)
	details.RuleID = "shared-rule"
	return details, err
}

// pageOrderAPI counts detail requests in flight and records every page requested meanwhile.
type pageOrderAPI struct {
	fakeAPI
	inflight    atomic.Int32
	maxInflight atomic.Int32
	overlaps    atomic.Int32
}

func (p *pageOrderAPI) ListVulnerabilities(ctx context.Context, releaseID string, q fod.VulnerabilityQuery) (fod.VulnerabilityPage, error) {
	if p.inflight.Load() > 0 {
		p.overlaps.Add(1)
	}
	return p.fakeAPI.ListVulnerabilities(ctx, releaseID, q)
}

func (p *pageOrderAPI) GetVulnerabilityDetails(ctx context.Context, releaseID, vulnID string) (fod.VulnerabilityDetails, error) {
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)
	for {
		current := p.maxInflight.Load()
		if n <= current || p.maxInflight.CompareAndSwap(current, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return p.fakeAPI.GetVulnerabilityDetails(ctx, releaseID, vulnID)
}
