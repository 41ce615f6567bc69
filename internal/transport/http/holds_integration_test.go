package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/lsendel/commerce-sub005/internal/app"
	"github.com/lsendel/commerce-sub005/internal/clock"
	"github.com/lsendel/commerce-sub005/internal/domain"
	"github.com/lsendel/commerce-sub005/internal/storage/postgres"
	"github.com/lsendel/commerce-sub005/internal/testutil"
)

func TestCreateHold_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	ledger := app.NewLedgerService(postgres.NewLedgerRepository(pool), clock.NewFixed(now))
	cart := app.NewCartService(ledger)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	resourceID := testutil.InsertResource(t, ctx, pool, domain.ResourceKindInventory, "widget", 100)

	body := []byte(`{"resource_id":"` + resourceID + `","quantity":3,"cart_item_id":"item-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/holds", bytes.NewBuffer(body))
	req.Header.Set(idempotencyHeader, "idem-1")
	rec := httptest.NewRecorder()

	HandleCreateHold(cart).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp holdResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(domain.HoldStatusActive) {
		t.Fatalf("expected status active, got %s", resp.Status)
	}
	if !resp.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected expires_at %v, got %v", now.Add(15*time.Minute), resp.ExpiresAt)
	}

	var count int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM holds WHERE resource_id = $1 AND idempotency_key = $2`,
		resourceID, "idem-1",
	).Scan(&count); err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 hold, got %d", count)
	}

	// Retry with the same key returns the same hold and inserts nothing.
	req2 := httptest.NewRequest(http.MethodPost, "/holds", bytes.NewBuffer(body))
	req2.Header.Set(idempotencyHeader, "idem-1")
	rec2 := httptest.NewRecorder()
	HandleCreateHold(cart).ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusCreated {
		t.Fatalf("expected status 201 on idempotent retry, got %d", rec2.Code)
	}
	var resp2 holdResponse
	if err := json.NewDecoder(rec2.Body).Decode(&resp2); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp2.ID != resp.ID {
		t.Fatalf("expected same hold ID on idempotent retry")
	}

	// Same key with a different quantity is a conflict.
	conflictBody := []byte(`{"resource_id":"` + resourceID + `","quantity":4,"cart_item_id":"item-1"}`)
	req3 := httptest.NewRequest(http.MethodPost, "/holds", bytes.NewBuffer(conflictBody))
	req3.Header.Set(idempotencyHeader, "idem-1")
	rec3 := httptest.NewRecorder()
	HandleCreateHold(cart).ServeHTTP(rec3, req3)

	if rec3.Code != http.StatusConflict {
		t.Fatalf("expected status 409 on conflict, got %d", rec3.Code)
	}
}

func TestHoldLifecycle_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	ledger := app.NewLedgerService(postgres.NewLedgerRepository(pool), clock.NewFixed(now))
	cart := app.NewCartService(ledger)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	resourceID := testutil.InsertResource(t, ctx, pool, domain.ResourceKindInventory, "widget", 10)

	create := func(key, item string, qty int) holdResponse {
		t.Helper()
		body := []byte(`{"resource_id":"` + resourceID + `","quantity":` + strconv.Itoa(qty) + `,"cart_item_id":"` + item + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/holds", bytes.NewBuffer(body))
		req.Header.Set(idempotencyHeader, key)
		rec := httptest.NewRecorder()
		HandleCreateHold(cart).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create hold: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp holdResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp
	}

	hold := create("k-1", "item-1", 10)

	// Capacity is gone, the next hold is rejected.
	body := []byte(`{"resource_id":"` + resourceID + `","quantity":1,"cart_item_id":"item-2"}`)
	req := httptest.NewRequest(http.MethodPost, "/holds", bytes.NewBuffer(body))
	req.Header.Set(idempotencyHeader, "k-2")
	rec := httptest.NewRecorder()
	HandleCreateHold(cart).ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 when capacity exhausted, got %d", rec.Code)
	}

	// Release frees it again.
	req = httptest.NewRequest(http.MethodPost, "/holds/"+hold.ID+"/release", nil)
	rec = httptest.NewRecorder()
	HandleHoldAction(cart).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("release: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// A second release hits the terminal guard.
	req = httptest.NewRequest(http.MethodPost, "/holds/"+hold.ID+"/release", nil)
	rec = httptest.NewRecorder()
	HandleHoldAction(cart).ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double release: expected 409, got %d", rec.Code)
	}

	// Re-acquire and convert into committed stock.
	hold = create("k-3", "item-3", 10)
	req = httptest.NewRequest(http.MethodPost, "/holds/"+hold.ID+"/convert", nil)
	rec = httptest.NewRecorder()
	HandleHoldAction(cart).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("convert: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	availReq := httptest.NewRequest(http.MethodGet, "/resources/"+resourceID+"/availability", nil)
	availRec := httptest.NewRecorder()
	HandleAvailability(ledger).ServeHTTP(availRec, availReq)
	if availRec.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d", availRec.Code)
	}
	var avail availabilityResponse
	if err := json.NewDecoder(availRec.Body).Decode(&avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if avail.Available != 0 {
		t.Fatalf("expected availability 0 after convert, got %d", avail.Available)
	}
}
