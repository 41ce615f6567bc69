package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lsendel/commerce-sub005/internal/app"
	"github.com/lsendel/commerce-sub005/internal/domain"
)

// BookingFlow is the minimal interface needed for booking endpoints.
type BookingFlow interface {
	Request(ctx context.Context, in app.RequestBookingInput) (domain.Booking, error)
	Confirm(ctx context.Context, bookingID string) (domain.Booking, error)
	Cancel(ctx context.Context, bookingID string) (domain.Booking, error)
}

// HandleCreateBooking returns an HTTP handler for creating booking requests.
func HandleCreateBooking(svc BookingFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		key := r.Header.Get(idempotencyHeader)
		if key == "" {
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, domain.ErrIdempotencyKeyRequired.Error())
			return
		}

		booking, err := svc.Request(r.Context(), app.RequestBookingInput{
			SlotID:         req.SlotID,
			Quantity:       req.Quantity,
			CustomerRef:    req.CustomerRef,
			TTL:            time.Duration(req.TTLSeconds) * time.Second,
			IdempotencyKey: key,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
	}
}

// HandleBookingAction returns an HTTP handler for confirming and cancelling bookings.
func HandleBookingAction(svc BookingFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		bookingID, action, ok := parseBookingActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var booking domain.Booking
		var err error
		switch action {
		case "confirm":
			booking, err = svc.Confirm(r.Context(), bookingID)
		case "cancel":
			booking, err = svc.Cancel(r.Context(), bookingID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeBookingError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
	}
}

func writeBookingError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidQuantity, domain.ErrInvalidTTL, domain.ErrInvalidID,
		domain.ErrCustomerRefRequired, domain.ErrIdempotencyKeyRequired:
		writeError(w, http.StatusBadRequest, bookingErrorCode(err), err.Error())
	case domain.ErrSlotNotFound, domain.ErrResourceNotFound:
		writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
	case domain.ErrBookingNotFound:
		writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
	case domain.ErrSlotClosed:
		writeError(w, http.StatusConflict, codeSlotClosed, err.Error())
	case domain.ErrCapacityExceeded:
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case domain.ErrIdempotencyConflict:
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case domain.ErrHoldExpired:
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case domain.ErrBookingAlreadyTerminal, domain.ErrHoldAlreadyTerminal:
		writeError(w, http.StatusConflict, codeBookingTerminal, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func bookingErrorCode(err error) string {
	switch err {
	case domain.ErrInvalidQuantity:
		return codeInvalidQuantity
	case domain.ErrInvalidTTL:
		return codeInvalidTTL
	case domain.ErrInvalidID:
		return codeInvalidID
	case domain.ErrCustomerRefRequired:
		return codeCustomerRefRequired
	case domain.ErrIdempotencyKeyRequired:
		return codeIdempotencyRequired
	default:
		return codeInternalError
	}
}

func parseBookingActionPath(path string) (bookingID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "bookings" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createBookingRequest struct {
	SlotID      string `json:"slot_id"`
	Quantity    int    `json:"quantity"`
	CustomerRef string `json:"customer_ref"`
	TTLSeconds  int    `json:"ttl_seconds"`
}

type bookingResponse struct {
	ID          string    `json:"id"`
	SlotID      string    `json:"slot_id"`
	HoldID      string    `json:"hold_id"`
	Quantity    int       `json:"quantity"`
	CustomerRef string    `json:"customer_ref"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		SlotID:      b.SlotID,
		HoldID:      b.HoldID,
		Quantity:    b.Quantity,
		CustomerRef: b.CustomerRef,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
}
