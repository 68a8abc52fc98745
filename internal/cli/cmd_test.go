package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

const citySelection = `
groups:
  - id: g1
    groupKey: profile
    mainSegmentSelection:
      value: Lagos
      segmentKey: city
    extraSelections:
      - value: Accra
        segmentKey: city
    segmentsRelation: OR
    filterOption:
      name: Include
      value: AND
    logicalOperator: AND
    dateFilter:
      type: timeperiod
      value: all
      name: All
`

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	expected := map[string]bool{
		"compose": false, "validate": false, "explain": false, "run": false,
		"options": false, "health": false, "saved": false, "seed": false,
	}
	for _, cmd := range rootCmd.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := expected[name]; ok {
			expected[name] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered", name)
	}

	var subs []string
	for _, cmd := range savedCmd.Commands() {
		subs = append(subs, strings.Fields(cmd.Use)[0])
	}
	assert.ElementsMatch(t, []string{"list", "get", "save", "delete"}, subs)
}

func TestCompose(t *testing.T) {
	path := writeFile(t, "sel.yaml", citySelection)
	out, err := execute(t, "compose", "-f", path, "-o", "json")
	require.NoError(t, err)

	var resp model.ComposeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.LeafCount)
	assert.True(t, resp.ComposedSegment.IsComposed())
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "sel.yaml", citySelection)
	out, err := execute(t, "validate", "-f", path, "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Selections are complete")

	empty := writeFile(t, "empty.json", `{"groups": []}`)
	_, err = execute(t, "validate", "-f", empty, "-o", "text")
	assert.EqualError(t, err, validator.MsgEmpty)
}

func TestExplain_Offline(t *testing.T) {
	path := writeFile(t, "sel.yaml", citySelection)
	out, err := execute(t, "explain", "-f", path, "--count-only", "-o", "json")
	require.NoError(t, err)

	var resp model.ExplainResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.JoinsEvents)
	assert.Contains(t, string(resp.ParsedQuery), "Lagos")
	require.NotEmpty(t, resp.Pipeline)
	assert.Contains(t, string(resp.Pipeline[len(resp.Pipeline)-1]), "$count")
}

func TestRun_AgainstService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.RunRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, 2, req.PageSize)
		_ = json.NewEncoder(w).Encode(model.RunResponse{
			TotalCount: 3,
			TotalPages: 2,
			Data:       []model.Profile{{ID: "p1", Email: "ada@example.com", Firstname: "Ada", LifetimeValue: 120.5}},
		})
	}))
	defer server.Close()

	path := writeFile(t, "sel.yaml", citySelection)
	out, err := execute(t, "run", "-f", path, "--page-size", "2", "--url", server.URL, "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "3 profiles matched, 2 page(s)")
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "120.50")
}

func TestBadOutputFormat(t *testing.T) {
	path := writeFile(t, "sel.yaml", citySelection)
	_, err := execute(t, "compose", "-f", path, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}
