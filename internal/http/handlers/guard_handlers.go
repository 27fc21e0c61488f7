package handlers

import (
	"net/http"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/http/middleware"
	"github.com/Agastya221/society-gate-backend/internal/http/response"
	"github.com/Agastya221/society-gate-backend/internal/service"
)

type arrivalReq struct {
	UnitID       int64  `json:"unit_id"`
	Type         string `json:"type"`
	ProviderTag  string `json:"provider_tag,omitempty"`
	VisitorName  string `json:"visitor_name"`
	VisitorPhone string `json:"visitor_phone,omitempty"`
}

func (in arrivalReq) toInput(w http.ResponseWriter) (service.ArrivalInput, bool) {
	if in.UnitID <= 0 {
		response.BadRequest(w, "unit_id is required")
		return service.ArrivalInput{}, false
	}
	if in.VisitorName == "" {
		response.BadRequest(w, "visitor_name is required")
		return service.ArrivalInput{}, false
	}
	entryType, ok := domain.ParseEntryType(in.Type)
	if !ok {
		response.BadRequest(w, "type must be visitor, delivery, staff or cab")
		return service.ArrivalInput{}, false
	}
	return service.ArrivalInput{
		UnitID:       in.UnitID,
		Type:         entryType,
		ProviderTag:  in.ProviderTag,
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
	}, true
}

// ReportArrival tries auto-approval first; the response says whether the
// visitor may walk in or is waiting on the resident.
func (h *Handlers) ReportArrival(w http.ResponseWriter, r *http.Request) {
	var in arrivalReq
	if !decode(w, r, &in) {
		return
	}
	input, ok := in.toInput(w)
	if !ok {
		return
	}

	res, err := h.entries.ReportArrival(r.Context(), middleware.Principal(r), input)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	if res.Entry != nil {
		response.WriteJSON(w, http.StatusCreated, map[string]any{
			"auto_approved": true,
			"entry":         res.Entry,
		})
		return
	}
	response.WriteJSON(w, http.StatusAccepted, map[string]any{
		"auto_approved": false,
		"request":       res.Request,
	})
}

func (h *Handlers) CreateEntryRequest(w http.ResponseWriter, r *http.Request) {
	var in arrivalReq
	if !decode(w, r, &in) {
		return
	}
	input, ok := in.toInput(w)
	if !ok {
		return
	}

	req, err := h.entries.CreateRequest(r.Context(), middleware.Principal(r), input)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handlers) CreateAdhocEntry(w http.ResponseWriter, r *http.Request) {
	var in arrivalReq
	if !decode(w, r, &in) {
		return
	}
	input, ok := in.toInput(w)
	if !ok {
		return
	}

	entry, err := h.entries.CreateAdhocEntry(r.Context(), middleware.Principal(r), input)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, entry)
}

type scanReq struct {
	Token string `json:"token"`
}

func (h *Handlers) ScanPreApproval(w http.ResponseWriter, r *http.Request) {
	var in scanReq
	if !decode(w, r, &in) {
		return
	}
	if in.Token == "" {
		response.BadRequest(w, "token is required")
		return
	}

	entry, err := h.credentials.ConsumePreApproval(r.Context(), middleware.Principal(r), in.Token)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handlers) ScanGatePass(w http.ResponseWriter, r *http.Request) {
	var in scanReq
	if !decode(w, r, &in) {
		return
	}
	if in.Token == "" {
		response.BadRequest(w, "token is required")
		return
	}

	gp, err := h.credentials.ScanGatePass(r.Context(), middleware.Principal(r), in.Token)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, gp)
}

func (h *Handlers) CheckoutEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	entry, err := h.entries.Checkout(r.Context(), middleware.Principal(r), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, entry)
}
