package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lsendel/commerce-sub005/internal/app"
	"github.com/lsendel/commerce-sub005/internal/clock"
	"github.com/lsendel/commerce-sub005/internal/domain"
	"github.com/lsendel/commerce-sub005/internal/storage/postgres"
	"github.com/lsendel/commerce-sub005/internal/testutil"
)

func TestBookingFlow_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	ledger := app.NewLedgerService(postgres.NewLedgerRepository(pool), clk)
	bookings := app.NewBookingService(postgres.NewBookingRepository(pool), ledger, clk)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	slotID := testutil.InsertSlot(t, ctx, pool, "evening tour", 4, now.Add(24*time.Hour), domain.SlotStatusOpen)

	// Request a booking for every seat in the slot.
	body := []byte(`{"slot_id":"` + slotID + `","quantity":4,"customer_ref":"cust-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(body))
	req.Header.Set(idempotencyHeader, "idem-1")
	rec := httptest.NewRecorder()
	HandleCreateBooking(bookings).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created bookingResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != string(domain.BookingStatusPending) {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	// All seats are held, so the ledger rejects the next request.
	req2 := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(body))
	req2.Header.Set(idempotencyHeader, "idem-2")
	rec2 := httptest.NewRecorder()
	HandleCreateBooking(bookings).ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusConflict {
		t.Fatalf("expected 409 for full slot, got %d: %s", rec2.Code, rec2.Body.String())
	}

	// Confirm turns the hold into confirmed seats.
	req3 := httptest.NewRequest(http.MethodPost, "/bookings/"+created.ID+"/confirm", nil)
	rec3 := httptest.NewRecorder()
	HandleBookingAction(bookings).ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec3.Code, rec3.Body.String())
	}
	var confirmed bookingResponse
	if err := json.NewDecoder(rec3.Body).Decode(&confirmed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if confirmed.Status != string(domain.BookingStatusConfirmed) {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	var confirmedSeats int
	if err := pool.QueryRow(ctx, `SELECT confirmed FROM resources WHERE id = $1`, slotID).Scan(&confirmedSeats); err != nil {
		t.Fatalf("query confirmed: %v", err)
	}
	if confirmedSeats != 4 {
		t.Fatalf("expected 4 confirmed seats, got %d", confirmedSeats)
	}

	// Cancelling a confirmed booking hits the terminal guard.
	req4 := httptest.NewRequest(http.MethodPost, "/bookings/"+created.ID+"/cancel", nil)
	rec4 := httptest.NewRecorder()
	HandleBookingAction(bookings).ServeHTTP(rec4, req4)
	if rec4.Code != http.StatusConflict {
		t.Fatalf("cancel after confirm: expected 409, got %d", rec4.Code)
	}
}
