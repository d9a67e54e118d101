package db

// SearchQuery is the input for a paged FT.SEARCH.
type SearchQuery struct {
	Index string
	// Query is the RediSearch query string (DIALECT 2).
	Query  string
	Offset int
	Limit  int
	// SortBy names a SORTABLE attribute; empty keeps index order.
	SortBy   string
	SortDesc bool
	// Return limits the returned attributes; empty returns all.
	Return []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
