package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"
)

type LoanApplicationHandler struct {
	service   *service.LoanApplicationService
	validator *validator.Validate
}

func NewLoanApplicationHandler(service *service.LoanApplicationService, v *validator.Validate) *LoanApplicationHandler {
	return &LoanApplicationHandler{service: service, validator: v}
}

func (h *LoanApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanApplicationRequest
	if err := decode(r, h.validator, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	app, err := h.service.Create(r.Context(), &req, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, app)
}

func (h *LoanApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	app, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, app)
}

// List returns every application, or those in ?status= when given.
func (h *LoanApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		apps []*domain.LoanApplication
		err  error
	)

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, perr := domain.ParseLoanStatus(raw)
		if perr != nil {
			response.FromError(w, r, errors.Validation(errors.ErrCodeInvalidStatus, "Invalid status value: "+raw))
			return
		}
		apps, err = h.service.ListByStatus(r.Context(), status)
	} else {
		apps, err = h.service.ListAll(r.Context())
	}
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, apps)
}

func (h *LoanApplicationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	apps, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, apps)
}

func (h *LoanApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var req domain.UpdateLoanStatusRequest
	if err := decode(r, h.validator, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	app, err := h.service.UpdateStatus(r.Context(), id, req.Status, req.Reason, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, app)
}

func (h *LoanApplicationHandler) SendToDecision(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	app, err := h.service.SendToDecision(r.Context(), id, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, domain.SendToDecisionResponse{ApplicationID: app.ID, Status: app.Status})
}

func (h *LoanApplicationHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	app, err := h.service.Finalize(r.Context(), id, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, app)
}
