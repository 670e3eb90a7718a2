package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"quotedesk/backend/internal/api/handler"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) RFQUpdated(rfqID string, payload map[string]any) {
	m.Called(rfqID, payload)
}

func (m *MockNotifier) QuoteSubmitted(rfqID string, payload map[string]any) {
	m.Called(rfqID, payload)
}

func setupRouter(notifier *MockNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewHandler(nil, nil, notifier, zap.NewNop())
	r := gin.New()
	r.POST("/internal/events/rfq-updated", h.RFQUpdated)
	r.POST("/internal/events/quote-submitted", h.QuoteSubmitted)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRFQUpdated_Accepted(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("RFQUpdated", "rfq-42", mock.Anything).Return()
	r := setupRouter(notifier)

	w := postJSON(r, "/internal/events/rfq-updated",
		`{"rfq_id":"rfq-42","payload":{"status":"awarded"}}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	notifier.AssertCalled(t, "RFQUpdated", "rfq-42",
		map[string]any{"status": "awarded"})
}

func TestRFQUpdated_MissingRFQID(t *testing.T) {
	notifier := new(MockNotifier)
	r := setupRouter(notifier)

	w := postJSON(r, "/internal/events/rfq-updated", `{"payload":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	notifier.AssertNotCalled(t, "RFQUpdated", mock.Anything, mock.Anything)
}

func TestQuoteSubmitted_Accepted(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("QuoteSubmitted", "rfq-42", mock.Anything).Return()
	r := setupRouter(notifier)

	w := postJSON(r, "/internal/events/quote-submitted",
		`{"rfq_id":"rfq-42","payload":{"quote_id":"q-7"}}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	notifier.AssertCalled(t, "QuoteSubmitted", "rfq-42",
		map[string]any{"quote_id": "q-7"})
}
