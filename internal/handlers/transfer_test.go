package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/upi-ledger/internal/models"
	"github.com/sbilibin2017/upi-ledger/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferHandler(t *testing.T) {
	record := models.TransactionRecord{
		ID:        "6f1c7d1e-7d43-4a39-9b5a-1b1f2c3d4e5f",
		Seq:       1,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		From:      "alice",
		To:        "bob",
		Amount:    40,
	}

	tests := []struct {
		name               string
		body               any
		setupMocks         func(m *MockTransferer)
		expectedStatusCode int
		expectedKind       string
	}{
		{
			name: "committed",
			body: TransferRequest{From: "alice", To: "bob", Amount: 40},
			setupMocks: func(m *MockTransferer) {
				m.EXPECT().Transfer(gomock.Any(), "alice", "bob", int64(40)).Return(record, nil)
			},
			expectedStatusCode: http.StatusCreated,
		},
		{
			name:               "invalid request body",
			body:               "invalid-json",
			setupMocks:         func(m *MockTransferer) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedKind:       "InvalidRequest",
		},
		{
			name: "insufficient funds",
			body: TransferRequest{From: "alice", To: "bob", Amount: 1000},
			setupMocks: func(m *MockTransferer) {
				m.EXPECT().Transfer(gomock.Any(), "alice", "bob", int64(1000)).Return(models.TransactionRecord{}, ledgerErr("transfer", services.ErrInsufficientFunds))
			},
			expectedStatusCode: http.StatusConflict,
			expectedKind:       "InsufficientFunds",
		},
		{
			name: "same account",
			body: TransferRequest{From: "alice", To: "alice", Amount: 10},
			setupMocks: func(m *MockTransferer) {
				m.EXPECT().Transfer(gomock.Any(), "alice", "alice", int64(10)).Return(models.TransactionRecord{}, ledgerErr("transfer", services.ErrSameAccount))
			},
			expectedStatusCode: http.StatusBadRequest,
			expectedKind:       "SameAccount",
		},
		{
			name: "unknown receiver",
			body: TransferRequest{From: "alice", To: "ghost", Amount: 10},
			setupMocks: func(m *MockTransferer) {
				m.EXPECT().Transfer(gomock.Any(), "alice", "ghost", int64(10)).Return(models.TransactionRecord{}, ledgerErr("transfer", services.ErrUnknownAccount))
			},
			expectedStatusCode: http.StatusNotFound,
			expectedKind:       "UnknownAccount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := NewMockTransferer(ctrl)
			tt.setupMocks(svc)

			var buf bytes.Buffer
			if s, ok := tt.body.(string); ok {
				buf.WriteString(s)
			} else {
				require.NoError(t, json.NewEncoder(&buf).Encode(tt.body))
			}

			rr := httptest.NewRecorder()
			NewTransferHandler(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transfers", &buf))

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			if tt.expectedKind == "" {
				var got models.TransactionRecord
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, record, got)
				return
			}
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.expectedKind, resp.Kind)
		})
	}
}
