package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"
)

type RepaymentHandler struct {
	service   *service.RepaymentService
	validator *validator.Validate
}

func NewRepaymentHandler(service *service.RepaymentService, v *validator.Validate) *RepaymentHandler {
	return &RepaymentHandler{service: service, validator: v}
}

// GeneratePlan accepts an optional body with term overrides.
func (h *RepaymentHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var req domain.GenerateRepaymentPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !stderrors.Is(err, io.EOF) {
		response.FromError(w, r, errors.Validation(errors.ErrCodeInvalidRequest, "Invalid request body"))
		return
	}

	plan, err := h.service.GenerateRepaymentPlan(r.Context(), id, &req, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, plan)
}

func (h *RepaymentHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	plan, err := h.service.GetRepaymentPlan(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if plan == nil {
		response.SuccessMessage(w, service.NoRepaymentPlanMessage, []domain.AmortizationLine{})
		return
	}

	response.Success(w, plan)
}

func (h *RepaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordPaymentRequest
	if err := decode(r, h.validator, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), &req, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, payment)
}

func (h *RepaymentHandler) ApplyPenalty(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "entryId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	entry, err := h.service.ApplyPenalty(r.Context(), id, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, entry)
}

func (h *RepaymentHandler) ListByApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	entries, err := h.service.ListByApplication(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, entries)
}

func (h *RepaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, payments)
}

func (h *RepaymentHandler) ListPendingByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	entries, err := h.service.ListPendingByUser(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, entries)
}

func (h *RepaymentHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListOverdue(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, entries)
}

func (h *RepaymentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListAll(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, entries)
}
