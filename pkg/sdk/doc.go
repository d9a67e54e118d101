// Package entrydex embeds the entrydex view pipeline in a Go program:
// search parameters compile to criteria, criteria select entries from a
// store, and the resolved display fields of the view render the entries as
// HTML, JSON, CSV or TSV.
//
// Views are declared in the same YAML document the server reads. Entries
// live in memory (the default) or in Redis 8 / Redis Stack.
//
//	eng, _ := entrydex.New(ctx,
//	    entrydex.WithViewsFile("config/views.yaml"),
//	    entrydex.WithMemory(entries...),
//	)
//	defer eng.Close()
//
//	c, _ := eng.CompileCriteria(ctx, "contacts", url.Values{"gv_search": {"Clara"}})
//	cols, _ := eng.ResolveOutputFields(ctx, "contacts", entrydex.ContextDirectory, entrydex.FormatCSV, entrydex.Principal{})
//	res, _ := eng.RenderEntries(ctx, entrydex.RenderRequest{
//	    View:   "contacts",
//	    Format: entrydex.FormatCSV,
//	    Params: url.Values{"gv_search": {"Clara"}},
//	}, os.Stdout)
//
// Requests run with SurfaceSDK access rules: the view must allow the
// requester, but the REST switch and embed-only setting do not apply.
package entrydex
