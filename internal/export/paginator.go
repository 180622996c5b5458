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
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/l3montree-dev/fod2sarif/pkg/fod"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// paginate walks the vulnerability index page by page. All detail requests of a
// page complete before the next page is requested.
func (e *Exporter) paginate(ctx context.Context, filters string) error {
	var done atomic.Int64
	progress := rate.Sometimes{Interval: 10 * time.Second}

	for offset := 0; ; offset += e.opts.PageSize {
		page, err := e.api.ListVulnerabilities(ctx, e.opts.ReleaseID, fod.VulnerabilityQuery{
			Filters: filters,
			Offset:  offset,
			Limit:   e.opts.PageSize,
		})
		if err != nil {
			return err
		}

		g := errgroup.Group{}
		g.SetLimit(e.opts.Concurrency)
		for _, vuln := range page.Items {
			g.Go(func() error {
				e.fetchDetails(ctx, vuln)
				n := done.Add(1)
				progress.Do(func() {
					slog.Info("fetching vulnerability details", "done", n, "total", page.TotalCount)
				})
				return nil
			})
		}
		// fetchDetails never fails
		_ = g.Wait()

		if len(page.Items) == 0 || page.TotalCount <= offset+e.opts.PageSize {
			return nil
		}
	}
}

// fetchDetails adds a rule and a result for a single vulnerability.
// Failures are logged and the vulnerability is left out of the document.
func (e *Exporter) fetchDetails(ctx context.Context, vuln fod.Vulnerability) {
	if !vuln.IsStatic() {
		slog.Debug("skipping vulnerability", "vulnId", vuln.VulnID, "scantype", vuln.ScanType)
		return
	}

	release, err := e.limiter.Acquire(ctx)
	if err != nil {
		ignoreVulnerability(err, vuln)
		return
	}
	details, err := e.api.GetVulnerabilityDetails(ctx, e.opts.ReleaseID, vuln.VulnID)
	release()
	if err != nil {
		ignoreVulnerability(err, vuln)
		return
	}

	e.assembler.AddRule(newRule(vuln, details, e.opts.WebUI))
	e.assembler.AddResult(newResult(vuln, details))
}

func ignoreVulnerability(err error, vuln fod.Vulnerability) {
	slog.Warn(fmt.Sprintf("%s - Ignoring vulnerability %s", err, vuln.VulnID))
}
