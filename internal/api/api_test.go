package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/pipeline"
	"github.com/andresuchdata/ddmrp-planner/internal/service"
)

type staticSource struct{}

func (staticSource) Load(context.Context) (*domain.Dataset, error) {
	ds := &domain.Dataset{
		Items: []domain.ItemProfile{
			{ID: "10", Name: "Film", Category: "FILM", LeadTimeDays: 20},
			{ID: "20", Name: "Core", Category: "PACKAGING"},
		},
		Stock: []domain.StockSnapshot{{ItemID: "10", Warehouse: "A01", Quantity: 60, Valid: true}},
	}
	for m := time.March; m <= time.August; m++ {
		ds.Consumption = append(ds.Consumption, domain.ConsumptionAggregate{
			ItemID:       "10",
			Month:        time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
			MovementType: domain.MovementSale,
			Quantity:     300,
		})
	}
	return ds, nil
}

func newTestRouter(t *testing.T, refreshed bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := pipeline.NewRefresher(pipeline.NewEngine(pipeline.DefaultConfig()), staticSource{},
		pipeline.WithClock(func() time.Time { return time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC) }))
	if refreshed {
		if err := r.Refresh(context.Background()); err != nil {
			t.Fatalf("Unexpected refresh error: %v", err)
		}
	}
	return NewRouter(&Services{PlanningService: service.NewPlanningService(r, nil)}, nil)
}

func do(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesStatusCodes(t *testing.T) {
	router := newTestRouter(t, true)

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"items", http.MethodGet, "/api/v1/items?status=critico", http.StatusOK},
		{"bad status", http.MethodGet, "/api/v1/items?status=unknown", http.StatusBadRequest},
		{"item", http.MethodGet, "/api/v1/items/010", http.StatusOK},
		{"missing item", http.MethodGet, "/api/v1/items/999", http.StatusNotFound},
		{"buffer", http.MethodGet, "/api/v1/items/10/buffer?ltf=0.5", http.StatusOK},
		{"bad ltf", http.MethodGet, "/api/v1/items/10/buffer?ltf=abc", http.StatusBadRequest},
		{"projection", http.MethodGet, "/api/v1/items/10/projection?horizon=7&warehouses=A01", http.StatusOK},
		{"alerts", http.MethodGet, "/api/v1/alerts", http.StatusOK},
		{"summary", http.MethodGet, "/api/v1/summary", http.StatusOK},
		{"deviation", http.MethodGet, "/api/v1/deviation/sales?month=2025-08", http.StatusOK},
		{"bad deviation kind", http.MethodGet, "/api/v1/deviation/returns", http.StatusBadRequest},
		{"bad month", http.MethodGet, "/api/v1/deviation/sales?month=2025-13", http.StatusBadRequest},
		{"export csv", http.MethodGet, "/api/v1/export/plans", http.StatusOK},
		{"export xlsx", http.MethodGet, "/api/v1/export/alerts?format=xlsx", http.StatusOK},
		{"bad export", http.MethodGet, "/api/v1/export/orders", http.StatusBadRequest},
		{"refresh", http.MethodPost, "/api/v1/refresh", http.StatusAccepted},
		{"refresh inline", http.MethodPost, "/api/v1/refresh?wait=true", http.StatusOK},
		{"refresh status", http.MethodGet, "/api/v1/refresh", http.StatusOK},
		{"refresh runs", http.MethodGet, "/api/v1/refresh/runs?limit=5", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.target)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestItemsResponse(t *testing.T) {
	w := do(newTestRouter(t, true), http.MethodGet, "/api/v1/items?category=film")
	var page domain.ItemPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if page.Total != 1 || page.Items[0].Item.ID != "10" {
		t.Errorf("Expected item 10 only, got %+v", page)
	}
}

func TestProjectionResponse(t *testing.T) {
	w := do(newTestRouter(t, true), http.MethodGet, "/api/v1/items/10/projection?horizon=7")
	var p domain.Projection
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(p.Days) != 8 || p.OpeningBalance != 60 {
		t.Errorf("Expected 8 days from 60, got %d days from %v", len(p.Days), p.OpeningBalance)
	}
}

func TestProjectionWarehouseSelection(t *testing.T) {
	router := newTestRouter(t, true)

	tests := []struct {
		name     string
		query    string
		expected float64
	}{
		{"absent uses valid warehouses", "", 60},
		{"explicit warehouse", "&warehouses=A01", 60},
		{"explicit empty selects none", "&warehouses=", 0},
		{"unknown warehouse", "&warehouses=ZZ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/v1/items/10/projection?horizon=3"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var p domain.Projection
			if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if p.OpeningBalance != tt.expected {
				t.Errorf("Expected opening balance %v, got %v", tt.expected, p.OpeningBalance)
			}
		})
	}
}

func TestUnavailableBeforeFirstRefresh(t *testing.T) {
	router := newTestRouter(t, false)

	w := do(router, http.MethodGet, "/api/v1/items")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["error"] == "" || body["details"] == "" {
		t.Errorf("Expected error and details, got %v", body)
	}

	if w := do(router, http.MethodGet, "/health"); !strings.Contains(w.Body.String(), "warming") {
		t.Errorf("Expected warming health status, got %s", w.Body.String())
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	if all || len(origins) != 2 {
		t.Errorf("Expected 2 explicit origins, got %v (all=%v)", origins, all)
	}
	if _, all := normalizeAllowedOrigins([]string{"*"}); !all {
		t.Errorf("Expected wildcard to allow all origins")
	}
}
