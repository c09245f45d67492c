package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/response"
)

type ProductHandler struct {
	service   *service.ProductService
	validator *validator.Validate
}

func NewProductHandler(service *service.ProductService, v *validator.Validate) *ProductHandler {
	return &ProductHandler{service: service, validator: v}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanProductRequest
	if err := decode(r, h.validator, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	product, err := h.service.Create(r.Context(), &req, actor(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, product)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, product)
}

// List returns active products; ?active=false includes deactivated ones.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if raw := r.URL.Query().Get("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "Invalid active flag: "+raw)
			return
		}
		activeOnly = parsed
	}

	products, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, products)
}

func (h *ProductHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	if err := h.service.Deactivate(r.Context(), id, actor(r)); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.SuccessMessage(w, "Loan product deactivated", nil)
}
