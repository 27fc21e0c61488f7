package handlers

import (
	"net/http"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/http/middleware"
	"github.com/Agastya221/society-gate-backend/internal/http/response"
	"github.com/Agastya221/society-gate-backend/internal/service"
)

type reasonReq struct {
	Reason string `json:"reason"`
}

func (h *Handlers) ApproveEntryRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	entry, err := h.entries.ApproveRequest(r.Context(), middleware.Principal(r), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handlers) RejectEntryRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in reasonReq
	if !decode(w, r, &in) {
		return
	}

	if err := h.entries.RejectRequest(r.Context(), middleware.Principal(r), id, in.Reason); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handlers) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.entries.ListPendingRequests(r.Context(), middleware.Principal(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, reqs)
}

func (h *Handlers) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.entries.ApproveEntry(r.Context(), middleware.Principal(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handlers) RejectEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in reasonReq
	if !decode(w, r, &in) {
		return
	}

	if err := h.entries.RejectEntry(r.Context(), middleware.Principal(r), id, in.Reason); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handlers) ListUnitEntries(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r)
	unitID := int64(queryInt(r, "unit_id", int(p.UnitID)))
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	entries, err := h.entries.ListUnitEntries(r.Context(), p, unitID, limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, entries)
}

type issuePreApprovalReq struct {
	VisitorName  string    `json:"visitor_name"`
	VisitorPhone string    `json:"visitor_phone,omitempty"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidUntil   time.Time `json:"valid_until"`
	MaxUses      int       `json:"max_uses"`
}

func (h *Handlers) IssuePreApproval(w http.ResponseWriter, r *http.Request) {
	var in issuePreApprovalReq
	if !decode(w, r, &in) {
		return
	}

	issued, err := h.credentials.IssuePreApproval(r.Context(), middleware.Principal(r), service.IssuePreApprovalInput{
		VisitorName:  in.VisitorName,
		VisitorPhone: in.VisitorPhone,
		ValidFrom:    in.ValidFrom,
		ValidUntil:   in.ValidUntil,
		MaxUses:      in.MaxUses,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, issued)
}

func (h *Handlers) CancelPreApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.credentials.CancelPreApproval(r.Context(), middleware.Principal(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handlers) ListPreApprovals(w http.ResponseWriter, r *http.Request) {
	ps, err := h.credentials.ListPreApprovals(r.Context(), middleware.Principal(r),
		queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, ps)
}

type requestGatePassReq struct {
	Purpose     string    `json:"purpose"`
	Description string    `json:"description,omitempty"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidUntil  time.Time `json:"valid_until"`
}

func (h *Handlers) RequestGatePass(w http.ResponseWriter, r *http.Request) {
	var in requestGatePassReq
	if !decode(w, r, &in) {
		return
	}
	purpose, ok := domain.ParseGatePassPurpose(in.Purpose)
	if !ok {
		response.BadRequest(w, "purpose must be material_move, maintenance or vehicle")
		return
	}

	requested, err := h.credentials.RequestGatePass(r.Context(), middleware.Principal(r), service.RequestGatePassInput{
		Purpose:     purpose,
		Description: in.Description,
		ValidFrom:   in.ValidFrom,
		ValidUntil:  in.ValidUntil,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, requested)
}

func (h *Handlers) CancelGatePass(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.credentials.CancelGatePass(r.Context(), middleware.Principal(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type createRuleReq struct {
	ProviderTag string `json:"provider_tag"`
	AllowedDays []int  `json:"allowed_days,omitempty"` // 0=Sunday .. 6=Saturday
	TimeFrom    string `json:"time_from,omitempty"`
	TimeUntil   string `json:"time_until,omitempty"`
}

func (h *Handlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var in createRuleReq
	if !decode(w, r, &in) {
		return
	}
	days := make([]time.Weekday, 0, len(in.AllowedDays))
	for _, d := range in.AllowedDays {
		days = append(days, time.Weekday(d))
	}

	rule, err := h.rules.CreateRule(r.Context(), middleware.Principal(r), service.CreateRuleInput{
		ProviderTag: in.ProviderTag,
		AllowedDays: days,
		TimeFrom:    in.TimeFrom,
		TimeUntil:   in.TimeUntil,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Handlers) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.rules.DeactivateRule(r.Context(), middleware.Principal(r), id); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handlers) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.ListRules(r.Context(), middleware.Principal(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, rules)
}

type expectDeliveryReq struct {
	ProviderTag  string `json:"provider_tag"`
	ExpectedDate string `json:"expected_date"` // "2006-01-02"
}

func (h *Handlers) ExpectDelivery(w http.ResponseWriter, r *http.Request) {
	var in expectDeliveryReq
	if !decode(w, r, &in) {
		return
	}
	date, err := time.Parse("2006-01-02", in.ExpectedDate)
	if err != nil {
		response.BadRequest(w, "expected_date must be YYYY-MM-DD")
		return
	}

	ed, err := h.rules.ExpectDelivery(r.Context(), middleware.Principal(r), in.ProviderTag, date)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, ed)
}

type proposeBookingReq struct {
	AmenityID   int64  `json:"amenity_id"`
	BookingDate string `json:"booking_date"` // "2006-01-02"
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

func (h *Handlers) ProposeBooking(w http.ResponseWriter, r *http.Request) {
	var in proposeBookingReq
	if !decode(w, r, &in) {
		return
	}
	date, err := time.Parse("2006-01-02", in.BookingDate)
	if err != nil {
		response.BadRequest(w, "booking_date must be YYYY-MM-DD")
		return
	}

	b, err := h.bookings.Propose(r.Context(), middleware.Principal(r), service.ProposeBookingInput{
		AmenityID:   in.AmenityID,
		BookingDate: date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	})
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in reasonReq
	if !decode(w, r, &in) {
		return
	}

	if err := h.bookings.Cancel(r.Context(), middleware.Principal(r), id, in.Reason); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handlers) ListDayBookings(w http.ResponseWriter, r *http.Request) {
	amenityID := int64(queryInt(r, "amenity_id", 0))
	if amenityID <= 0 {
		response.BadRequest(w, "amenity_id is required")
		return
	}
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		response.BadRequest(w, "date must be YYYY-MM-DD")
		return
	}

	bs, err := h.bookings.ListDay(r.Context(), amenityID, day)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, bs)
}
