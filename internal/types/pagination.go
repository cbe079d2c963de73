package types

// PaginationInfo is the cursor metadata returned with each list page.
type PaginationInfo struct {
	TotalResults    int    `json:"total_results"`
	NextCursor      string `json:"next_cursor,omitempty"`
	NextPageResults bool   `json:"next_page_results"`
	PrevCursor      string `json:"prev_cursor,omitempty"`
	PrevPageResults bool   `json:"prev_page_results"`
	Count           int    `json:"count"`
	TotalPages      int    `json:"total_pages"`
}

// InboxIssuePage is one page of a list call.
type InboxIssuePage struct {
	PaginationInfo
	Results []InboxIssue `json:"results"`
}

// Pagination returns the metadata half of the page.
func (p *InboxIssuePage) Pagination() PaginationInfo {
	return p.PaginationInfo
}
