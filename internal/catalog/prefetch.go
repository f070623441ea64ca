package catalog

// PageState is what the coordinator knows about the currently rendered
// listing: which page it is, how large the filtered set is and whether the
// data on screen is a placeholder carried over from a previous filter set.
type PageState struct {
	Page        int
	Total       int
	Limit       int
	Placeholder bool
}

// DecideNextPrefetch decides whether navigating toward requestedPage should
// speculatively warm the page after it. The page requestedPage+1 is worth
// prefetching only when:
//
//   - the current result is real, not a stale placeholder,
//   - the navigation is a look-ahead (requestedPage beyond the current page),
//   - the filtered set extends past the requested page's successor.
//
// Any violated condition is a silent no-op; prefetching is never an error.
func DecideNextPrefetch(cur PageState, requestedPage int) (int, bool) {
	if cur.Placeholder {
		return 0, false
	}
	if requestedPage <= cur.Page {
		return 0, false
	}
	if cur.Total <= (requestedPage+1)*cur.Limit {
		return 0, false
	}
	return requestedPage + 1, true
}
