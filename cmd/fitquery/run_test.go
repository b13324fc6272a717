package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogue = "../../internal/repository/testdata/installations.yaml"

func TestRunWindow(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"0", "expired"},
		{"1.5", "immediate"},
		{"2", "immediate"},
		{"4", "urgent"},
		{"10", "optimal"},
		{"12", "planning"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, runWindow(&out, tt.arg))
			assert.Equal(t, tt.want+"\n", out.String())
		})
	}

	var out bytes.Buffer
	assert.Error(t, runWindow(&out, "soon"))
}

func TestRunResolveWithoutCatalogue(t *testing.T) {
	in := strings.NewReader("wind sites over 100kw in berkshire\n\ngeothermal sites in cornwall\n")
	var out bytes.Buffer

	require.NoError(t, runResolve(in, &out, "", "cli-session", ""))

	got := out.String()
	assert.Contains(t, got, "> wind sites over 100kw in berkshire\n")
	assert.Contains(t, got, `"region_name": "Berkshire"`)
	assert.Contains(t, got, "> geothermal sites in cornwall\n")
	assert.Contains(t, got, `"code": "unknown_technology"`)
	assert.Equal(t, 2, strings.Count(got, "> "))
}

func TestRunResolveWithCatalogue(t *testing.T) {
	in := strings.NewReader("how many wind sites in yorkshire\nexport wind sites in cornwall\n")
	var out bytes.Buffer

	require.NoError(t, runResolve(in, &out, "", "", testCatalogue))

	got := out.String()
	assert.Contains(t, got, "intent=aggregate mode=full_scan_aggregate")
	assert.Contains(t, got, "count: count=4 total=1775.0 kW")
	assert.Contains(t, got, "1 of 1 installations")
	assert.Contains(t, got, "100401")
}

func TestRunSearchRequiresCatalogue(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runSearch(&out, "", "", "wind", 5))
}

func TestRunLocate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runLocate(&out, "", []string{"york"}))
	assert.Contains(t, out.String(), `"canonical_name": "York"`)

	out.Reset()
	require.NoError(t, runLocate(&out, "", []string{"atlantis"}))
	assert.Contains(t, out.String(), `"code": "unresolved_location"`)
}
