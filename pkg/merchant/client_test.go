package merchant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/angelmondragon/clientpulse/pkg/config"
	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/shopspring/decimal"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := config.MerchantConfig{
		BaseURL:    server.URL,
		Username:   "admin",
		Password:   "secret",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		PageSize:   2,
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := NewClient(cfg, logg, WithoutProgress())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func tokenHandler(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	mux.HandleFunc("/rest/V1/integration/admin/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("auth method = %s", r.Method)
		}
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "admin" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode("token-123")
	})
}

func TestAuthenticateStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	tokenHandler(t, mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if client.token != "token-123" {
		t.Fatalf("token = %q", client.token)
	}
}

func TestAuthenticateBadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/V1/integration/admin/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	err := testClient(t, server).Authenticate(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeAuthentication) {
		t.Fatalf("error = %v, want authentication code", err)
	}
}

func TestGetRequiresAuthentication(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	client := testClient(t, server)
	err := client.get(context.Background(), "/orders", nil, &searchPage{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeAuthentication) {
		t.Fatalf("error = %v, want authentication code", err)
	}
}

func TestGetRetriesTransientStatus(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	tokenHandler(t, mux)
	mux.HandleFunc("/rest/V1/orders", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("Authorization") != "Bearer token-123" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewEncoder(w).Encode(searchPage{TotalCount: 0})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	var page searchPage
	if err := client.get(context.Background(), "/orders", nil, &page); err != nil {
		t.Fatalf("get after retries: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	tokenHandler(t, mux)
	mux.HandleFunc("/rest/V1/orders", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	err := client.get(context.Background(), "/orders", nil, &searchPage{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("error = %v, want dependency code", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 for 400", attempts)
	}
}

func TestFetchOrdersPaginatesAndMaps(t *testing.T) {
	customerID := int64(77)
	rawOrders := []orderDTO{
		{
			IncrementID:   "100001",
			CustomerEmail: "Alice@Example.COM",
			CreatedAt:     "2024-03-01 10:00:00",
			GrandTotal:    150.5,
			Status:        "Complete",
			Items: []orderItemDTO{
				{SKU: "PARENT", ProductType: "configurable", QtyOrdered: 1, RowTotalInclTax: 150.5},
				{SKU: "CHILD", ProductType: "simple", QtyInvoiced: 2, RowTotalInclTax: 150.5},
			},
		},
		{
			IncrementID:   "100002",
			CustomerEmail: "alice@example.com",
			CreatedAt:     "2024-04-01 10:00:00",
			GrandTotal:    80,
			Status:        "processing",
		},
		{
			EntityID:   9,
			CustomerID: &customerID,
			CreatedAt:  "2024-05-01 10:00:00",
			GrandTotal: 20,
			Status:     "complete",
			Items: []orderItemDTO{
				{SKU: "S3", QtyOrdered: 1, RowTotalInclTax: 20},
			},
		},
	}

	mux := http.NewServeMux()
	tokenHandler(t, mux)
	mux.HandleFunc("/rest/V1/orders", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("searchCriteria[filterGroups][0][filters][0][field]"); got != "created_at" {
			t.Errorf("first filter field = %q", got)
		}
		page := query.Get("searchCriteria[currentPage]")

		items := make([]json.RawMessage, 0, 2)
		start := 0
		if page == "2" {
			start = 2
		}
		for i := start; i < start+2 && i < len(rawOrders); i++ {
			raw, _ := json.Marshal(rawOrders[i])
			items = append(items, raw)
		}
		_ = json.NewEncoder(w).Encode(searchPage{Items: items, TotalCount: len(rawOrders)})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	orders, err := client.FetchOrders(context.Background(), 2024, []string{"complete", "processing"})
	if err != nil {
		t.Fatalf("FetchOrders: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("orders = %d, want 3 across two pages", len(orders))
	}

	first := orders[0]
	if first.CustomerID != "alice@example.com" {
		t.Fatalf("customer id = %q, want lowercased email", first.CustomerID)
	}
	if first.Status != "complete" {
		t.Fatalf("status = %q, want lowercased", first.Status)
	}
	if !first.GrandTotal.Equal(decimal.NewFromFloat(150.5)) {
		t.Fatalf("grand total = %s", first.GrandTotal)
	}
	if len(first.LineItems) != 1 || first.LineItems[0].SKU != "CHILD" {
		t.Fatalf("line items = %+v, want configurable parent skipped", first.LineItems)
	}
	if first.LineItems[0].Qty != 2 {
		t.Fatalf("qty = %d, want invoiced qty", first.LineItems[0].Qty)
	}

	third := orders[2]
	if third.ID != "9" {
		t.Fatalf("order id = %q, want entity id fallback", third.ID)
	}
	if third.CustomerID != "77" {
		t.Fatalf("customer id = %q, want account id fallback", third.CustomerID)
	}
}

func TestFetchCategoryNamesWalksTree(t *testing.T) {
	mux := http.NewServeMux()
	tokenHandler(t, mux)
	mux.HandleFunc("/rest/V1/categories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1,"name":"Root","children_data":[
			{"id":10,"name":"Flower","children_data":[{"id":11,"name":"Pre-Rolls","children_data":[]}]},
			{"id":20,"name":"Edibles","children_data":[]}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	names, err := client.FetchCategoryNames(context.Background())
	if err != nil {
		t.Fatalf("FetchCategoryNames: %v", err)
	}
	want := map[string]string{"10": "Flower", "11": "Pre-Rolls", "20": "Edibles"}
	for id, name := range want {
		if names[id] != name {
			t.Fatalf("names[%s] = %q, want %q", id, names[id], name)
		}
	}
	if _, ok := names["1"]; ok {
		t.Fatalf("root category should not be included")
	}
}

func TestFetchCatalogParsesCustomAttributes(t *testing.T) {
	mux := http.NewServeMux()
	tokenHandler(t, mux)
	mux.HandleFunc("/rest/V1/products", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count":2,"items":[
			{"sku":"S1","name":"OG Kush","price":45,"custom_attributes":[
				{"attribute_code":"category_ids","value":["10","20"]},
				{"attribute_code":"brand","value":"7"}]},
			{"sku":"S2","name":"Gummies","price":20,"custom_attributes":[
				{"attribute_code":"category_ids","value":"20,30"},
				{"attribute_code":"brand","value":9}]}
		]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	catalog, err := client.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}
	if catalog["S1"].CategoryID != "10" || catalog["S1"].BrandID != "7" {
		t.Fatalf("S1 = %+v", catalog["S1"])
	}
	if catalog["S2"].CategoryID != "20" || catalog["S2"].BrandID != "9" {
		t.Fatalf("S2 = %+v, want string list and numeric brand handled", catalog["S2"])
	}
}

func TestApplyCatalog(t *testing.T) {
	orders := []types.OrderRecord{{
		ID: "O1",
		LineItems: []types.LineItem{
			{SKU: "S1"},
			{SKU: "UNKNOWN"},
		},
	}}
	catalog := map[string]Product{
		"S1": {SKU: "S1", CategoryID: "10", BrandID: "7"},
	}

	ApplyCatalog(orders, catalog)

	if orders[0].LineItems[0].CategoryID != "10" || orders[0].LineItems[0].BrandID != "7" {
		t.Fatalf("known sku not enriched: %+v", orders[0].LineItems[0])
	}
	if orders[0].LineItems[1].CategoryID != "" {
		t.Fatalf("unknown sku should keep empty ids")
	}
}
