package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Invalidator drops cached reports after a sale mutates stock or revenue.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Recorder counts committed sale operations for the metrics endpoint.
type Recorder interface {
	SaleRecorded()
	SaleCancelled()
}

// Handler wires HTTP endpoints for the sales module. Cancellation goes
// through the admin guard; everything else is open to any cashier.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	reports  Invalidator
	metrics  Recorder
	admin    func(http.Handler) http.Handler
}

// NewHandler constructs sales handler. reports and metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, reports Invalidator, metrics Recorder, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, reports: reports, metrics: metrics, admin: admin}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)

	r.Group(func(r chi.Router) {
		if h.admin != nil {
			r.Use(h.admin)
		}
		r.Post("/{id}/cancel", h.handleCancel)
	})
}

type listResponse struct {
	Sales      []Sale            `json:"sales"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sess := shared.SessionFromContext(r.Context())
	sale, err := h.service.Create(r.Context(), req.toInput(sess.User(), sess.Name()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SaleRecorded()
	}
	h.invalidateReports(r)
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sales, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Sales:      sales,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SaleCancelled()
	}
	h.invalidateReports(r)
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) invalidateReports(r *http.Request) {
	if h.reports == nil {
		return
	}
	if err := h.reports.Invalidate(r.Context()); err != nil {
		h.logger.Warn("report cache invalidation failed", slog.Any("error", err))
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		CashierID: q.Get("cashier_id"),
	}

	if v := q.Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return ListFilter{}, errors.New("from must be YYYY-MM-DD")
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return ListFilter{}, errors.New("to must be YYYY-MM-DD")
		}
		filter.To = to.Add(24 * time.Hour)
	}
	if v := q.Get("payment_method"); v != "" {
		pm := PaymentMethod(v)
		if !pm.Valid() {
			return ListFilter{}, ErrInvalidPayment
		}
		filter.PaymentMethod = pm
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return ListFilter{}, errors.New("active must be a boolean")
		}
		filter.Active = &active
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return filter, nil
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", insufficient.Error())
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, catalog.ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrSaleCancelled):
		httpx.Problem(w, http.StatusConflict, "Already Cancelled", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrEmptySale), errors.Is(err, ErrInvalidTotal), errors.Is(err, ErrInvalidPayment), errors.Is(err, ErrInvalidItem):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("sales request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
