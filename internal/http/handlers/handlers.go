package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Agastya221/society-gate-backend/internal/http/response"
	"github.com/Agastya221/society-gate-backend/internal/service"
)

type Handlers struct {
	entries     service.EntryService
	credentials service.CredentialService
	bookings    service.BookingService
	rules       service.RulesService
}

func New(
	entries service.EntryService,
	credentials service.CredentialService,
	bookings service.BookingService,
	rules service.RulesService,
) *Handlers {
	return &Handlers{
		entries:     entries,
		credentials: credentials,
		bookings:    bookings,
		rules:       rules,
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid json")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
