package domain

// ItemFilter narrows and pages item listings.
type ItemFilter struct {
	Status   HealthStatus `json:"status"`
	Zone     Zone         `json:"zone"`
	ABC      string       `json:"abc"`
	Category string       `json:"category"`
	Search   string       `json:"search"`
	// SortField is one of item_id, coverage, adu, stock.
	SortField     string `json:"sort_field"`
	SortDirection string `json:"sort_direction"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
}

// ItemPage is a paginated item listing.
type ItemPage struct {
	Items      []ItemPlan `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
