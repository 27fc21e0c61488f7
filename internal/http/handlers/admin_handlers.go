package handlers

import (
	"net/http"

	"github.com/Agastya221/society-gate-backend/internal/http/middleware"
	"github.com/Agastya221/society-gate-backend/internal/http/response"
)

func (h *Handlers) ApproveGatePass(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.credentials.ApproveGatePass(r.Context(), middleware.Principal(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handlers) RejectGatePass(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in reasonReq
	if !decode(w, r, &in) {
		return
	}

	if err := h.credentials.RejectGatePass(r.Context(), middleware.Principal(r), id, in.Reason); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handlers) ListPendingGatePasses(w http.ResponseWriter, r *http.Request) {
	gps, err := h.credentials.ListPendingGatePasses(r.Context(), middleware.Principal(r),
		queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, gps)
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.bookings.Confirm(r.Context(), middleware.Principal(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handlers) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.bookings.Complete(r.Context(), middleware.Principal(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
