package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	logpkg "github.com/kailas-cloud/entrydex/internal/logger"
	accessuc "github.com/kailas-cloud/entrydex/internal/usecase/access"
	entriesuc "github.com/kailas-cloud/entrydex/internal/usecase/entries"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Stream a view to stdout",
	Long: `export renders a view through the same pipeline as the REST server, with
editor rights: CSV and TSV exports contain every matching entry, other
formats honor --page and --limit.

Search parameters are passed as --param name=value, exactly as they would
appear in the query string (for example --param gv_search=Clara or
--param "filter_3[start]=2024-01-01").`,
	Example: `  entrydex export --view contacts --format csv > contacts.csv
  entrydex export --view 10 --format json --param filter_2=Oslo --limit 50`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("view", "", "view id or slug (required)")
	exportCmd.Flags().String("format", "csv", "output format: html, json, csv, tsv")
	exportCmd.Flags().StringArray("param", nil, "search parameter as name=value (repeatable)")
	exportCmd.Flags().StringSlice("columns", nil, "restrict output to these field ids")
	exportCmd.Flags().Bool("labels", false, "use field labels as CSV/TSV headers")
	exportCmd.Flags().Bool("include-unapproved", false, "include unapproved entries on approved-only views")
	exportCmd.Flags().Int("page", 1, "page number (html/json)")
	exportCmd.Flags().Int("limit", 0, "page size (html/json), 0 uses the view setting")
	exportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	_ = exportCmd.MarkFlagRequired("view")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	req, err := exportRequest(cmd)
	if err != nil {
		return err
	}

	ctx := logpkg.ContextWithLogger(context.Background(), logger)
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	res, err := export(ctx, a.entries, req, out)
	if err != nil {
		return err
	}
	logger.Info("Export finished",
		zap.String("view", req.ViewID),
		zap.String("format", string(req.Format)),
		zap.Int("items", res.Items),
		zap.Int("total", res.Total),
	)
	return nil
}

// exportRequest translates the export flags into a pipeline request.
func exportRequest(cmd *cobra.Command) (entriesuc.ListRequest, error) {
	flags := cmd.Flags()
	viewID, _ := flags.GetString("view")
	formatName, _ := flags.GetString("format")
	rawParams, _ := flags.GetStringArray("param")
	columns, _ := flags.GetStringSlice("columns")
	unapproved, _ := flags.GetBool("include-unapproved")
	page, _ := flags.GetInt("page")
	limit, _ := flags.GetInt("limit")

	f, err := view.ParseFormat(formatName)
	if err != nil {
		return entriesuc.ListRequest{}, err
	}
	params, err := parseParams(rawParams)
	if err != nil {
		return entriesuc.ListRequest{}, err
	}

	caps := []access.Capability{access.CapEditViews}
	if unapproved {
		caps = append(caps, access.CapApproveEntries)
	}
	req := entriesuc.ListRequest{
		ViewID:  viewID,
		Format:  f,
		Params:  params,
		Page:    page,
		Limit:   limit,
		Columns: columns,
		Access: accessuc.Request{
			Principal: access.NewPrincipal("cli", caps...),
			Surface:   accessuc.SurfaceCLI,
		},
	}
	if flags.Changed("labels") {
		labels, _ := flags.GetBool("labels")
		req.UseLabels = &labels
	}
	return req, nil
}

func export(ctx context.Context, svc *entriesuc.Service, req entriesuc.ListRequest, w io.Writer) (entriesuc.Result, error) {
	res, err := svc.RenderEntries(ctx, req, w, http.Header{})
	if err != nil {
		return entriesuc.Result{}, fmt.Errorf("export view %s: %w", req.ViewID, err)
	}
	return res, nil
}

// parseParams turns name=value pairs into query values. Repeated names
// accumulate, so --param "filter_4[]=a" --param "filter_4[]=b" builds a list.
func parseParams(raw []string) (url.Values, error) {
	params := url.Values{}
	for _, p := range raw {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", p)
		}
		params.Add(name, value)
	}
	return params, nil
}
