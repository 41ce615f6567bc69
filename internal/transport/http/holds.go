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

const idempotencyHeader = "Idempotency-Key"

// StockHolder is the minimal interface needed for cart-item hold endpoints.
type StockHolder interface {
	HoldItem(ctx context.Context, in app.HoldItemInput) (domain.Hold, error)
	ReleaseItem(ctx context.Context, holdID string) error
	CheckoutItem(ctx context.Context, holdID string) error
}

// HandleCreateHold returns an HTTP handler for reserving stock into a cart.
func HandleCreateHold(svc StockHolder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
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

		hold, err := svc.HoldItem(r.Context(), app.HoldItemInput{
			ResourceID:     req.ResourceID,
			Quantity:       req.Quantity,
			CartItemID:     req.CartItemID,
			TTL:            time.Duration(req.TTLSeconds) * time.Second,
			IdempotencyKey: key,
		})
		if err != nil {
			writeHoldError(w, err)
			return
		}

		resp := holdResponse{
			ID:        hold.ID,
			Status:    string(hold.Status),
			Quantity:  hold.Quantity,
			ExpiresAt: hold.ExpiresAt,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleHoldAction returns an HTTP handler for releasing and converting holds.
func HandleHoldAction(svc StockHolder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		holdID, action, ok := parseHoldActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var err error
		switch action {
		case "release":
			err = svc.ReleaseItem(r.Context(), holdID)
		case "convert":
			err = svc.CheckoutItem(r.Context(), holdID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeHoldError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(holdActionResponse{ID: holdID, Status: actionStatus(action)})
	}
}

func actionStatus(action string) string {
	if action == "convert" {
		return string(domain.HoldStatusConverted)
	}
	return string(domain.HoldStatusReleased)
}

func writeHoldError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidQuantity, domain.ErrInvalidTTL, domain.ErrInvalidID,
		domain.ErrOwnerRefRequired, domain.ErrInvalidOwnerKind, domain.ErrIdempotencyKeyRequired:
		writeError(w, http.StatusBadRequest, holdErrorCode(err), err.Error())
	case domain.ErrResourceNotFound:
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	case domain.ErrHoldNotFound:
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case domain.ErrCapacityExceeded:
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case domain.ErrIdempotencyConflict:
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case domain.ErrHoldExpired:
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case domain.ErrHoldAlreadyTerminal:
		writeError(w, http.StatusConflict, codeHoldTerminal, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func holdErrorCode(err error) string {
	switch err {
	case domain.ErrInvalidQuantity:
		return codeInvalidQuantity
	case domain.ErrInvalidTTL:
		return codeInvalidTTL
	case domain.ErrInvalidID:
		return codeInvalidID
	case domain.ErrOwnerRefRequired, domain.ErrInvalidOwnerKind:
		return codeOwnerRefRequired
	case domain.ErrIdempotencyKeyRequired:
		return codeIdempotencyRequired
	default:
		return codeInternalError
	}
}

func parseHoldActionPath(path string) (holdID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "holds" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createHoldRequest struct {
	ResourceID string `json:"resource_id"`
	Quantity   int    `json:"quantity"`
	CartItemID string `json:"cart_item_id"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type holdResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}

type holdActionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
