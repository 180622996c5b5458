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
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembler(t *testing.T) {
	t.Run("should render an empty run with a named driver", func(t *testing.T) {
		doc := NewAssembler().Render(RunMetadata{})

		assert.Equal(t, SchemaURL, doc.Schema)
		assert.Equal(t, "2.1.0", doc.Version)
		require.Len(t, doc.Runs, 1)
		assert.Equal(t, "Fortify on Demand", doc.Runs[0].Tool.Driver.Name)

		var buf bytes.Buffer
		require.NoError(t, doc.Write(&buf))

		var raw map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
		run := raw["runs"].([]any)[0].(map[string]any)
		driver := run["tool"].(map[string]any)["driver"].(map[string]any)
		assert.Equal(t, []any{}, driver["rules"])
		assert.Equal(t, []any{}, run["results"])
		assert.NotContains(t, driver, "version")
		assert.NotContains(t, run, "automationDetails")
	})

	t.Run("should set the driver version and the guid", func(t *testing.T) {
		doc := NewAssembler().Render(RunMetadata{DriverVersion: "24.2.0 2024.3.0", GUID: "guid"})
		assert.Equal(t, "24.2.0 2024.3.0", doc.Runs[0].Tool.Driver.Version)
		require.NotNil(t, doc.Runs[0].AutomationDetails)
		assert.Equal(t, "guid", doc.Runs[0].AutomationDetails.GUID)
	})

	t.Run("should deduplicate rules by id", func(t *testing.T) {
		a := NewAssembler()
		assert.True(t, a.AddRule(ReportingDescriptor{ID: "r1", Name: "first"}))
		assert.False(t, a.AddRule(ReportingDescriptor{ID: "r1", Name: "second"}))
		assert.True(t, a.AddRule(ReportingDescriptor{ID: "r2"}))

		rules := a.Render(RunMetadata{}).Runs[0].Tool.Driver.Rules
		require.Len(t, rules, 2)
		assert.Equal(t, "first", rules[0].Name)
		assert.Equal(t, "r2", rules[1].ID)
	})

	t.Run("should keep results in arrival order", func(t *testing.T) {
		a := NewAssembler()
		a.AddResult(Result{RuleID: "a"})
		a.AddResult(Result{RuleID: "b"})

		results := a.Render(RunMetadata{}).Runs[0].Results
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].RuleID)
		assert.Equal(t, "b", results[1].RuleID)
	})

	t.Run("should accept concurrent appends", func(t *testing.T) {
		a := NewAssembler()
		wg := sync.WaitGroup{}
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("rule-%d", i%10)
				a.AddRule(ReportingDescriptor{ID: id})
				a.AddResult(Result{RuleID: id})
			}(i)
		}
		wg.Wait()

		rules, results := a.Len()
		assert.Equal(t, 10, rules)
		assert.Equal(t, 100, results)
	})

	t.Run("should not be affected by appends after rendering", func(t *testing.T) {
		a := NewAssembler()
		a.AddResult(Result{RuleID: "a"})
		doc := a.Render(RunMetadata{})
		a.AddResult(Result{RuleID: "b"})
		assert.Len(t, doc.Runs[0].Results, 1)
	})
}

func TestWriteAndParse(t *testing.T) {
	a := NewAssembler()
	a.AddRule(ReportingDescriptor{
		ID:               "rule",
		ShortDescription: &Text{Text: "SQL Injection"},
		Properties:       &Properties{Tags: []string{"Critical"}},
	})
	a.AddResult(Result{
		RuleID:  "rule",
		Level:   LevelWarning,
		Message: Text{Text: "a < b"},
		Locations: []Location{{PhysicalLocation: PhysicalLocation{
			ArtifactLocation: ArtifactLocation{URI: "src/main.go"},
			Region:           Region{StartLine: 3, StartColumn: 1, EndLine: 3, EndColumn: 80},
		}}},
		PartialFingerprints: map[string]string{"issueInstanceId": "instance"},
	})

	var buf bytes.Buffer
	require.NoError(t, a.Render(RunMetadata{DriverVersion: "1 2"}).Write(&buf))

	assert.Contains(t, buf.String(), "\n  \"version\": \"2.1.0\"")
	assert.Contains(t, buf.String(), `"text": "a < b"`)

	doc, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Runs[0].Results, 1)
	assert.Equal(t, "instance", doc.Runs[0].Results[0].PartialFingerprints["issueInstanceId"])
	assert.Equal(t, 80, doc.Runs[0].Results[0].Locations[0].PhysicalLocation.Region.EndColumn)
	assert.Equal(t, []string{"Critical"}, doc.Runs[0].Tool.Driver.Rules[0].Properties.Tags)
}
