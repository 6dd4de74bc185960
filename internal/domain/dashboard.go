package domain

// StatusSummary is the summary card of one health status.
type StatusSummary struct {
	Status     HealthStatus `json:"status"`
	Label      string       `json:"label"`
	Count      int          `json:"count"`
	TotalValue float64      `json:"total_value"` // stock valued at unit cost
}

// ZoneSummary counts items per buffer zone.
type ZoneSummary struct {
	Zone  Zone `json:"zone"`
	Count int  `json:"count"`
}

// SegmentCell is one cell of the ABC x XYZ matrix.
type SegmentCell struct {
	ABC   string `json:"abc"`
	XYZ   string `json:"xyz"`
	Count int    `json:"count"`
}

// PortfolioSummary aggregates a snapshot for the dashboard.
type PortfolioSummary struct {
	TotalItems    int             `json:"total_items"`
	StatusSummary []StatusSummary `json:"status_summary"`
	ZoneSummary   []ZoneSummary   `json:"zone_summary"`
	SegmentMatrix []SegmentCell   `json:"segment_matrix"`
	// AvgCoverageDays averages coverage over items with demand only.
	AvgCoverageDays float64 `json:"avg_coverage_days"`
	NoDemandItems   int     `json:"no_demand_items"`
	Faults          int     `json:"faults"`
	Stale           bool    `json:"stale"`
}
