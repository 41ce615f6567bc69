package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lsendel/commerce-sub005/internal/domain"
)

// AvailabilityReader is the minimal interface needed for availability reads.
type AvailabilityReader interface {
	Availability(ctx context.Context, resourceID string) (int, error)
}

// HandleAvailability returns an HTTP handler exposing derived availability
// for a resource.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		resourceID, ok := parseAvailabilityPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		available, err := svc.Availability(r.Context(), resourceID)
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrResourceNotFound:
				writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(availabilityResponse{
			ResourceID: resourceID,
			Available:  available,
		})
	}
}

func parseAvailabilityPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "resources" || parts[2] != "availability" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type availabilityResponse struct {
	ResourceID string `json:"resource_id"`
	Available  int    `json:"available"`
}
