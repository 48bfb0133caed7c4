package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupPaymentEventHandler() (*gin.Engine, *MockPaymentEventEnqueuer, *MockReconciler) {
	events := new(MockPaymentEventEnqueuer)
	reconciler := new(MockReconciler)
	h := NewPaymentEventHandler(events, reconciler)

	r := gin.New()
	r.POST("/payment-events", h.Enqueue)
	r.POST("/documents/:id/reconcile", h.Reconcile)
	return r, events, reconciler
}

func TestPaymentEventHandler_Enqueue(t *testing.T) {
	r, events, _ := setupPaymentEventHandler()
	documentID := uuid.New()
	event := invoicing.NewPaymentChangedEvent(documentID, "bank-import")
	events.On("PaymentChanged", mock.Anything, documentID, "bank-import").Return(event, nil)

	body := `{"document_id":"` + documentID.String() + `","source":"bank-import"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment-events", strings.NewReader(body)))

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		Data dto.PaymentEventResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, event.EventID().String(), resp.Data.EventID)
	assert.Equal(t, documentID.String(), resp.Data.DocumentID)
	events.AssertExpectations(t)
}

func TestPaymentEventHandler_Enqueue_DefaultSource(t *testing.T) {
	r, events, _ := setupPaymentEventHandler()
	documentID := uuid.New()
	events.On("PaymentChanged", mock.Anything, documentID, DefaultPaymentEventSource).
		Return(invoicing.NewPaymentChangedEvent(documentID, DefaultPaymentEventSource), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment-events",
		strings.NewReader(`{"document_id":"`+documentID.String()+`"}`)))

	assert.Equal(t, http.StatusAccepted, w.Code)
	events.AssertExpectations(t)
}

func TestPaymentEventHandler_Enqueue_Invalid(t *testing.T) {
	r, events, _ := setupPaymentEventHandler()

	for _, body := range []string{`{}`, `{"document_id":"nope"}`, `not json`} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment-events", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	events.AssertNotCalled(t, "PaymentChanged", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentEventHandler_Enqueue_StoreFailure(t *testing.T) {
	r, events, _ := setupPaymentEventHandler()
	documentID := uuid.New()
	events.On("PaymentChanged", mock.Anything, documentID, mock.Anything).Return(nil, errors.New("outbox down"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment-events",
		strings.NewReader(`{"document_id":"`+documentID.String()+`"}`)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPaymentEventHandler_Reconcile(t *testing.T) {
	r, _, reconciler := setupPaymentEventHandler()
	documentID := uuid.New()
	reconciler.On("Reconcile", mock.Anything, documentID).Return(&appinvoicing.ReconcileResult{
		DocumentID: documentID,
		Outcome:    telemetry.OutcomeUpdated,
		Status:     invoicing.StatusPaid,
		TotalPaid:  decimal.NewFromInt(120),
		Attempts:   1,
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents/"+documentID.String()+"/reconcile", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data appinvoicing.ReconcileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, telemetry.OutcomeUpdated, resp.Data.Outcome)
	assert.Equal(t, invoicing.StatusPaid, resp.Data.Status)
	assert.True(t, resp.Data.TotalPaid.Equal(decimal.NewFromInt(120)))
}

func TestPaymentEventHandler_Reconcile_InvalidID(t *testing.T) {
	r, _, reconciler := setupPaymentEventHandler()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents/FA0001/reconcile", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	reconciler.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
}
