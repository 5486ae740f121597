package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/upi-ledger/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestGetBalanceHandler(t *testing.T) {
	tests := []struct {
		name               string
		id                 string
		setupMocks         func(m *MockBalanceReader)
		expectedStatusCode int
		expectedBody       string
	}{
		{
			name: "known account",
			id:   "alice",
			setupMocks: func(m *MockBalanceReader) {
				m.EXPECT().GetBalance(gomock.Any(), "alice").Return(int64(60), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       `{"id":"alice","balance":60}`,
		},
		{
			name: "unknown account",
			id:   "ghost",
			setupMocks: func(m *MockBalanceReader) {
				m.EXPECT().GetBalance(gomock.Any(), "ghost").Return(int64(0), &services.LedgerError{
					Op: "get_balance", AccountID: "ghost", Kind: services.ErrUnknownAccount,
				})
			},
			expectedStatusCode: http.StatusNotFound,
			expectedBody:       `{"error":"get_balance: unknown account (account \"ghost\")","kind":"UnknownAccount"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := NewMockBalanceReader(ctrl)
			tt.setupMocks(svc)

			r := chi.NewRouter()
			RegisterGetBalanceHandler(r, NewGetBalanceHandler(svc))

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounts/"+tt.id+"/balance", nil))

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
		})
	}
}
