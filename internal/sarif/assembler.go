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

package sarif

import (
	"slices"
	"sync"
)

// Assembler collects rules and results of a single run. It is safe for concurrent use.
type Assembler struct {
	mu      sync.Mutex
	rules   []ReportingDescriptor
	ruleIDs map[string]struct{}
	results []Result
}

func NewAssembler() *Assembler {
	return &Assembler{
		rules:   make([]ReportingDescriptor, 0),
		ruleIDs: make(map[string]struct{}),
		results: make([]Result, 0),
	}
}

// AddRule appends the rule unless a rule with the same id was added before.
// It reports whether the rule was appended.
func (a *Assembler) AddRule(rule ReportingDescriptor) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.ruleIDs[rule.ID]; ok {
		return false
	}
	a.ruleIDs[rule.ID] = struct{}{}
	a.rules = append(a.rules, rule)
	return true
}

func (a *Assembler) AddResult(result Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
}

func (a *Assembler) Len() (rules int, results int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rules), len(a.results)
}

// RunMetadata is attached to the single run of a rendered document.
// Empty fields are omitted from the output.
type RunMetadata struct {
	DriverVersion string
	GUID          string
}

// Render returns the document containing everything added so far.
func (a *Assembler) Render(meta RunMetadata) Document {
	a.mu.Lock()
	defer a.mu.Unlock()

	run := Run{
		Tool: Tool{
			Driver: Driver{
				Name:    DriverName,
				Version: meta.DriverVersion,
				Rules:   slices.Clone(a.rules),
			},
		},
		Results: slices.Clone(a.results),
	}
	if meta.GUID != "" {
		run.AutomationDetails = &AutomationDetails{GUID: meta.GUID}
	}

	return Document{
		Schema:  SchemaURL,
		Version: Version,
		Runs:    []Run{run},
	}
}
