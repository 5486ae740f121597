package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/upi-ledger/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestListTransactionsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockTransactionLister(ctrl)
	svc.EXPECT().Transactions(gomock.Any()).Return([]models.TransactionRecord{{
		ID:        "tx-1",
		Seq:       1,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		From:      "alice",
		To:        "bob",
		Amount:    40,
	}})

	rr := httptest.NewRecorder()
	NewListTransactionsHandler(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"transactions":[{
		"id":"tx-1","seq":1,"timestamp":"2026-01-02T03:04:05Z","from":"alice","to":"bob","amount":40
	}]}`, rr.Body.String())
}
