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

// AdminProductService is the minimal interface needed for admin product endpoints.
type AdminProductService interface {
	CreateProduct(ctx context.Context, in app.CreateProductInput) (domain.Resource, error)
	ListProducts(ctx context.Context) ([]domain.Resource, error)
}

// AdminSlotService is the minimal interface needed for admin slot endpoints.
type AdminSlotService interface {
	CreateSlot(ctx context.Context, in app.CreateSlotInput) (app.SlotInfo, error)
	ListSlots(ctx context.Context) ([]app.SlotInfo, error)
	CloseSlot(ctx context.Context, slotID string) error
	CancelSlot(ctx context.Context, slotID string) error
	ReopenSlot(ctx context.Context, slotID string) error
}

// HandleAdminProducts returns an HTTP handler for admin product creation/listing.
func HandleAdminProducts(svc AdminProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			products, err := svc.ListProducts(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]productResponse, 0, len(products))
			for _, p := range products {
				resp = append(resp, toProductResponse(p))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createProductRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			product, err := svc.CreateProduct(r.Context(), app.CreateProductInput{
				Name:  req.Name,
				Stock: req.Stock,
			})
			if err != nil {
				switch err {
				case domain.ErrProductNameRequired:
					writeError(w, http.StatusBadRequest, codeProductNameRequired, err.Error())
				case domain.ErrInvalidCapacity:
					writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toProductResponse(product))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminSlots returns an HTTP handler for admin slot creation/listing.
func HandleAdminSlots(svc AdminSlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			slots, err := svc.ListSlots(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]slotResponse, 0, len(slots))
			for _, s := range slots {
				resp = append(resp, toSlotResponse(s))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createSlotRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			var startsAt *time.Time
			if req.StartsAt != "" {
				parsed, err := time.Parse(time.RFC3339, req.StartsAt)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
					return
				}
				startsAt = &parsed
			}

			slot, err := svc.CreateSlot(r.Context(), app.CreateSlotInput{
				Name:     req.Name,
				StartsAt: startsAt,
				Capacity: req.Capacity,
			})
			if err != nil {
				switch err {
				case domain.ErrSlotNameRequired:
					writeError(w, http.StatusBadRequest, codeSlotNameRequired, err.Error())
				case domain.ErrInvalidCapacity:
					writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toSlotResponse(slot))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminSlotAction returns an HTTP handler for slot status overrides.
func HandleAdminSlotAction(svc AdminSlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		slotID, action, ok := parseAdminSlotActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var err error
		switch action {
		case "close":
			err = svc.CloseSlot(r.Context(), slotID)
		case "cancel":
			err = svc.CancelSlot(r.Context(), slotID)
		case "reopen":
			err = svc.ReopenSlot(r.Context(), slotID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrSlotNotFound:
				writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func parseAdminSlotActionPath(path string) (slotID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "slots" || parts[2] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

type createProductRequest struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

type productResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Confirmed int    `json:"confirmed"`
}

func toProductResponse(p domain.Resource) productResponse {
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Stock:     p.Capacity,
		Confirmed: p.Confirmed,
	}
}

type createSlotRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"starts_at"`
	Capacity int    `json:"capacity"`
}

type slotResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	Status   string    `json:"status"`
	Capacity int       `json:"capacity"`
}

func toSlotResponse(s app.SlotInfo) slotResponse {
	return slotResponse{
		ID:       s.Resource.ID,
		Name:     s.Resource.Name,
		StartsAt: s.Slot.StartsAt,
		Status:   string(s.Slot.Status),
		Capacity: s.Resource.Capacity,
	}
}
