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
	"strings"

	"github.com/l3montree-dev/fod2sarif/pkg/fod"
)

// MaxIssuesPerQuery is the number of items the vulnerability index returns at most for a single filter.
const MaxIssuesPerQuery = 1000

// Selection marks the severity strata to retrieve.
type Selection struct {
	Critical bool
	High     bool
	Medium   bool
	Low      bool
}

// SelectSeverities picks the widest set of severities whose combined issue
// count stays within MaxIssuesPerQuery. The first matching rule wins.
func SelectSeverities(release fod.Release) Selection {
	c, h, m := release.Critical, release.High, release.Medium

	switch {
	case release.IssueCount <= MaxIssuesPerQuery:
		return Selection{Critical: true, High: true, Medium: true, Low: true}
	case c+h+m <= MaxIssuesPerQuery:
		return Selection{Critical: true, High: true, Medium: true}
	case c+h <= MaxIssuesPerQuery:
		return Selection{Critical: true, High: true}
	case c <= MaxIssuesPerQuery:
		return Selection{Critical: true}
	default:
		return Selection{}
	}
}

func (s Selection) Empty() bool {
	return !s.Critical && !s.High && !s.Medium && !s.Low
}

func (s Selection) severities() []string {
	severities := make([]string, 0, 4)
	if s.Critical {
		severities = append(severities, "Critical")
	}
	if s.High {
		severities = append(severities, "High")
	}
	if s.Medium {
		severities = append(severities, "Medium")
	}
	if s.Low {
		severities = append(severities, "Low")
	}
	return severities
}

// Filter builds the filters parameter of the vulnerability index.
// It returns false if nothing is selected and paging should be skipped.
func (s Selection) Filter() (string, bool) {
	if s.Empty() {
		return "", false
	}
	return "scantype:" + fod.ScanTypeStatic + "+severityString:" + strings.Join(s.severities(), "|"), true
}
