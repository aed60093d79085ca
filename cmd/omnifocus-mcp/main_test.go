package main

import (
	"testing"
)

var expectedGroups = []string{
	"omnifocus_tasks",
	"omnifocus_projects",
	"omnifocus_structure",
	"omnifocus_system",
}

// TestToolGroupsDefinition verifies that toolGroups contains 4 groups and
// each group has at least one method.
func TestToolGroupsDefinition(t *testing.T) {
	if len(toolGroups) != 4 {
		t.Errorf("expected 4 tool groups, got %d", len(toolGroups))
	}

	for i, expected := range expectedGroups {
		if i >= len(toolGroups) {
			t.Errorf("missing tool group: %s", expected)
			continue
		}
		if toolGroups[i].Name != expected {
			t.Errorf("tool group %d: expected name %s, got %s", i, expected, toolGroups[i].Name)
		}
		if len(toolGroups[i].Methods) == 0 {
			t.Errorf("tool group %s has no methods", toolGroups[i].Name)
		}
		if toolGroups[i].Description == "" {
			t.Errorf("tool group %s has no description", toolGroups[i].Name)
		}
	}
}

func TestToolGroupMethodIndex(t *testing.T) {
	if len(toolGroupMethodIndex) != 4 {
		t.Errorf("expected 4 entries in method index, got %d", len(toolGroupMethodIndex))
	}

	testCases := []struct {
		group  string
		method string
	}{
		{"omnifocus_tasks", "tasks.get"},
		{"omnifocus_tasks", "tasks.update_batch"},
		{"omnifocus_tasks", "tasks.reorder"},
		{"omnifocus_projects", "projects.update"},
		{"omnifocus_projects", "projects.delete"},
		{"omnifocus_structure", "folders.list"},
		{"omnifocus_structure", "tags.create"},
		{"omnifocus_system", "system.database"},
		{"omnifocus_system", "journal.recent"},
	}

	for _, tc := range testCases {
		methods, ok := toolGroupMethodIndex[tc.group]
		if !ok {
			t.Errorf("%s not found in toolGroupMethodIndex", tc.group)
			continue
		}
		if !methods[tc.method] {
			t.Errorf("%s missing method %s", tc.group, tc.method)
		}
	}
}

// TestBuildToolsList verifies that buildToolsList returns 5 tools
// (4 groups + the legacy omnifocus.call).
func TestBuildToolsList(t *testing.T) {
	tools := buildToolsList()
	if len(tools) != 5 {
		t.Errorf("expected 5 tools, got %d", len(tools))
	}

	foundLegacy := false
	for _, tool := range tools {
		if tool["name"] == legacyToolName {
			foundLegacy = true
			if tool["description"] == nil {
				t.Error("omnifocus.call missing description")
			}
			if tool["inputSchema"] == nil {
				t.Error("omnifocus.call missing inputSchema")
			}
			break
		}
	}
	if !foundLegacy {
		t.Error("legacy omnifocus.call not found in tools list")
	}

	for _, expected := range expectedGroups {
		found := false
		for _, tool := range tools {
			if tool["name"] != expected {
				continue
			}
			found = true
			schema, ok := tool["inputSchema"].(map[string]any)
			if !ok {
				t.Errorf("%s has invalid inputSchema type", expected)
				break
			}
			props, ok := schema["properties"].(map[string]any)
			if !ok {
				t.Errorf("%s inputSchema missing properties", expected)
				break
			}
			methodProp, ok := props["method"].(map[string]any)
			if !ok {
				t.Errorf("%s inputSchema missing method property", expected)
				break
			}
			if methodProp["enum"] == nil {
				t.Errorf("%s method property missing enum", expected)
			}
			break
		}
		if !found {
			t.Errorf("tool group %s not found in tools list", expected)
		}
	}
}

func TestMethodGroupValidation(t *testing.T) {
	testCases := []struct {
		group          string
		method         string
		shouldNotExist bool
	}{
		{"omnifocus_tasks", "projects.update", true},
		{"omnifocus_tasks", "journal.recent", true},
		{"omnifocus_projects", "tasks.create", true},
		{"omnifocus_structure", "system.database", true},
		{"omnifocus_system", "tags.list", true},
		{"omnifocus_tasks", "tasks.create", false},
		{"omnifocus_projects", "projects.update_batch", false},
		{"omnifocus_structure", "folders.create", false},
	}

	for _, tc := range testCases {
		methods, ok := toolGroupMethodIndex[tc.group]
		if !ok {
			t.Errorf("group %s not found in index", tc.group)
			continue
		}

		exists := methods[tc.method]
		if tc.shouldNotExist && exists {
			t.Errorf("%s should not contain %s", tc.group, tc.method)
		}
		if !tc.shouldNotExist && !exists {
			t.Errorf("%s should contain %s", tc.group, tc.method)
		}
	}
}

// TestNoMethodDuplicates ensures that no method appears in multiple groups.
func TestNoMethodDuplicates(t *testing.T) {
	seen := make(map[string]string)

	for _, g := range toolGroups {
		for _, m := range g.Methods {
			if prev, exists := seen[m]; exists {
				t.Errorf("method %s appears in both %s and %s", m, prev, g.Name)
			}
			seen[m] = g.Name
		}
	}
}

func TestToolGroupMethodCounts(t *testing.T) {
	expectedCounts := map[string]int{
		"omnifocus_tasks":     6, // get, create, update, update_batch, delete, reorder
		"omnifocus_projects":  5, // get, create, update, update_batch, delete
		"omnifocus_structure": 4, // folders.list, folders.create, tags.list, tags.create
		"omnifocus_system":    2, // system.database, journal.recent
	}

	for _, g := range toolGroups {
		expected, ok := expectedCounts[g.Name]
		if !ok {
			t.Errorf("no expected count defined for group %s", g.Name)
			continue
		}
		if actual := len(g.Methods); actual != expected {
			t.Errorf("group %s: expected %d methods, got %d", g.Name, expected, actual)
		}
	}
}

func TestToolGroupIndexMatchesDefinition(t *testing.T) {
	for _, g := range toolGroups {
		indexMethods, ok := toolGroupMethodIndex[g.Name]
		if !ok {
			t.Errorf("group %s not found in index", g.Name)
			continue
		}

		for _, method := range g.Methods {
			if !indexMethods[method] {
				t.Errorf("group %s: method %s in definition but not in index", g.Name, method)
			}
		}

		if len(indexMethods) != len(g.Methods) {
			t.Errorf("group %s: index has %d methods but definition has %d",
				g.Name, len(indexMethods), len(g.Methods))
		}
	}
}

func TestToolGroupDescriptions(t *testing.T) {
	for _, g := range toolGroups {
		if len(g.Description) < 10 {
			t.Errorf("group %s has suspiciously short description: %q", g.Name, g.Description)
		}
	}
}
