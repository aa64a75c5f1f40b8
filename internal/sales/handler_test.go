package sales

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/shared"
	_ "github.com/meridian-pos/meridian-pos/testing"
)

type countingRecorder struct {
	recorded  int
	cancelled int
}

func (c *countingRecorder) SaleRecorded()  { c.recorded++ }
func (c *countingRecorder) SaleCancelled() { c.cancelled++ }

func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := &shared.Session{}
		sess.SetUser("cashier-1", "admin", "Ana")
		next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
	})
}

func newTestRouter(repo *fakeRepo, metrics Recorder) chi.Router {
	clock := &fixedClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, nil, clock)
	handler := NewHandler(slog.Default(), svc, validator.New(), nil, metrics, nil)

	router := chi.NewRouter()
	router.Use(withSession)
	router.Route("/sales", handler.MountRoutes)
	return router
}

func TestHandleCreateCountsSale(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 10, 0)
	metrics := &countingRecorder{}
	router := newTestRouter(repo, metrics)

	body := `{"items":[{"product_id":"p1","quantity":1,"unit_price":10,"total_price":10}],
		"subtotal":10,"total":10,"payment_method":"cash"}`
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, metrics.recorded)
	require.Equal(t, 0, metrics.cancelled)
}

func TestHandleCancelCountsCancellation(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 10, 0)
	metrics := &countingRecorder{}
	router := newTestRouter(repo, metrics)

	body := `{"items":[{"product_id":"p1","quantity":1,"unit_price":10,"total_price":10}],
		"subtotal":10,"total":10,"payment_method":"cash"}`
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var saleID string
	for id := range repo.sales {
		saleID = id
	}
	require.NotEmpty(t, saleID)

	req = httptest.NewRequest(http.MethodPost, "/sales/"+saleID+"/cancel", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, metrics.cancelled)
}

func TestHandleCreateFailureDoesNotCountSale(t *testing.T) {
	repo := newFakeRepo()
	seedProduct(repo, "p1", "Coffee", 2, 0)
	metrics := &countingRecorder{}
	router := newTestRouter(repo, metrics)

	body := `{"items":[{"product_id":"p1","quantity":5,"unit_price":10,"total_price":50}],
		"subtotal":50,"total":50,"payment_method":"cash"}`
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 0, metrics.recorded)
}

func TestRespondErrorMapsInvalidItem(t *testing.T) {
	handler := NewHandler(slog.Default(), nil, validator.New(), nil, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sales", nil)
	handler.respondError(rec, req, fmt.Errorf("%w: quantity must be positive (product p1)", ErrInvalidItem))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "quantity must be positive")
}
