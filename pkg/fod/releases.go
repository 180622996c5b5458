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

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

func (c *Client) GetRelease(ctx context.Context, releaseID string) (Release, error) {
	var release Release
	query := url.Values{"filters": {"scantype:" + ScanTypeStatic}}
	if err := c.Get(ctx, "/api/v3/releases/"+url.PathEscape(releaseID), query, &release); err != nil {
		return Release{}, errors.Wrapf(err, "could not get release %s", releaseID)
	}
	return release, nil
}

func (c *Client) GetScanSummary(ctx context.Context, scanID int) (ScanSummary, error) {
	var summary ScanSummary
	if err := c.Get(ctx, "/api/v3/scans/"+strconv.Itoa(scanID)+"/summary", nil, &summary); err != nil {
		return ScanSummary{}, errors.Wrapf(err, "could not get summary of scan %d", scanID)
	}
	return summary, nil
}

// ListVulnerabilities fetches a single page of the vulnerability index of a release.
func (c *Client) ListVulnerabilities(ctx context.Context, releaseID string, q VulnerabilityQuery) (VulnerabilityPage, error) {
	query := url.Values{}
	if q.Filters != "" {
		query.Set("filters", q.Filters)
	}
	query.Set("excludeFilters", "true")
	query.Set("offset", strconv.Itoa(q.Offset))
	query.Set("limit", strconv.Itoa(q.Limit))

	var page VulnerabilityPage
	if err := c.Get(ctx, "/api/v3/releases/"+url.PathEscape(releaseID)+"/vulnerabilities", query, &page); err != nil {
		return VulnerabilityPage{}, errors.Wrapf(err, "could not list vulnerabilities of release %s (offset %d)", releaseID, q.Offset)
	}
	return page, nil
}

func (c *Client) GetVulnerabilityDetails(ctx context.Context, releaseID, vulnID string) (VulnerabilityDetails, error) {
	var details VulnerabilityDetails
	path := "/api/v3/releases/" + url.PathEscape(releaseID) + "/vulnerabilities/" + url.PathEscape(vulnID) + "/details"
	if err := c.Get(ctx, path, nil, &details); err != nil {
		return VulnerabilityDetails{}, err
	}
	return details, nil
}
