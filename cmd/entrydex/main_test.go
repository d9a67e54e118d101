package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/config"
	"github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	accessuc "github.com/kailas-cloud/entrydex/internal/usecase/access"
	entriesuc "github.com/kailas-cloud/entrydex/internal/usecase/entries"
)

const testViews = `
forms:
  - id: "3"
    title: Contacts
    fields:
      - {id: "1", label: Name, type: text}
      - {id: "2", label: City, type: text}
views:
  - id: "10"
    slug: contacts
    title: Contacts
    form: "3"
    settings:
      status: publish
      page_size: 1
      sort: {field: id, direction: ASC}
    fields:
      - {id: "1", position: directory_table-columns}
      - {id: "2", position: directory_table-columns}
    search:
      areas:
        - position: general_search-general
          fields:
            - {key: "2", type: text, label: City}
`

const testSeed = `[
  {"id": 1, "form_id": 3, "date_created": "2024-02-01 10:00:00", "fields": {"1": "Clara Thompson", "2": "Oslo"}},
  {"id": 2, "form_id": 3, "date_created": "2024-02-02 10:00:00", "fields": {"1": "Bob", "2": "Rome"}}
]`

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	viewsPath := filepath.Join(dir, "views.yaml")
	seedPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(viewsPath, []byte(testViews), 0o600))
	require.NoError(t, os.WriteFile(seedPath, []byte(testSeed), 0o600))

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
database:
  driver: memory
  seed_path: %s
views:
  path: %s
export:
  bom: false
`, seedPath, viewsPath)))
	require.NoError(t, err)

	a, err := buildApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func editorRequest(f view.Format) entriesuc.ListRequest {
	return entriesuc.ListRequest{
		ViewID: "contacts",
		Format: f,
		Access: accessuc.Request{
			Principal: access.NewPrincipal("cli", access.CapEditViews),
			Surface:   accessuc.SurfaceCLI,
		},
	}
}

func TestExport_FullCSV(t *testing.T) {
	a := testApp(t)

	var buf bytes.Buffer
	res, err := export(context.Background(), a.entries, editorRequest(view.FormatCSV), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items, "editor CSV export ignores the view page size")
	assert.True(t, res.FullExport)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Clara Thompson", "Oslo"}, records[1])
	assert.Equal(t, []string{"Bob", "Rome"}, records[2])
}

func TestExport_JSONPaged(t *testing.T) {
	a := testApp(t)

	var buf bytes.Buffer
	res, err := export(context.Background(), a.entries, editorRequest(view.FormatJSON), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, 2, res.Total)
	assert.False(t, res.FullExport)
}

func TestExport_SearchParams(t *testing.T) {
	a := testApp(t)

	req := editorRequest(view.FormatCSV)
	params, err := parseParams([]string{"filter_2=rom"})
	require.NoError(t, err)
	req.Params = params

	var buf bytes.Buffer
	res, err := export(context.Background(), a.entries, req, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)
	assert.Contains(t, buf.String(), "Bob")
	assert.NotContains(t, buf.String(), "Clara")
}

func TestExport_UnknownView(t *testing.T) {
	a := testApp(t)
	req := editorRequest(view.FormatCSV)
	req.ViewID = "nope"
	_, err := export(context.Background(), a.entries, req, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export view nope")
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"gv_search=Clara training", "filter_4[]=a", "filter_4[]=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "Clara training", got.Get("gv_search"))
	assert.Equal(t, []string{"a", "b"}, got["filter_4[]"])
	assert.Equal(t, []string{""}, got["empty"])

	for _, bad := range []string{"novalue", "=x"} {
		_, err := parseParams([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestExportRequest_Flags(t *testing.T) {
	require.NoError(t, exportCmd.ParseFlags([]string{
		"--view", "contacts",
		"--format", "TSV",
		"--param", "filter_2=Oslo",
		"--columns", "1,2",
		"--labels",
		"--include-unapproved",
	}))

	req, err := exportRequest(exportCmd)
	require.NoError(t, err)
	assert.Equal(t, "contacts", req.ViewID)
	assert.Equal(t, view.FormatTSV, req.Format)
	assert.Equal(t, "Oslo", req.Params.Get("filter_2"))
	assert.Equal(t, []string{"1", "2"}, req.Columns)
	require.NotNil(t, req.UseLabels)
	assert.True(t, *req.UseLabels)
	assert.True(t, req.Access.Principal.Can(access.CapEditViews))
	assert.True(t, req.Access.Principal.Can(access.CapApproveEntries))
	assert.Equal(t, accessuc.SurfaceCLI, req.Access.Surface)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "entrydex dev"))
}
