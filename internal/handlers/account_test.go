package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/upi-ledger/internal/models"
	"github.com/sbilibin2017/upi-ledger/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerErr(op string, kind error) error {
	return &services.LedgerError{Op: op, AccountID: "alice", Kind: kind}
}

func TestCreateAccountHandler(t *testing.T) {
	tests := []struct {
		name               string
		body               string
		setupMocks         func(m *MockAccountCreator)
		expectedStatusCode int
		expectedKind       string
	}{
		{
			name: "created",
			body: `{"id":"alice"}`,
			setupMocks: func(m *MockAccountCreator) {
				m.EXPECT().CreateAccount(gomock.Any(), "alice").Return(models.Account{ID: "alice", Seq: 1}, nil)
			},
			expectedStatusCode: http.StatusCreated,
		},
		{
			name:               "malformed json",
			body:               `{"id":`,
			setupMocks:         func(m *MockAccountCreator) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedKind:       "InvalidRequest",
		},
		{
			name: "blank id",
			body: `{"id":"  "}`,
			setupMocks: func(m *MockAccountCreator) {
				m.EXPECT().CreateAccount(gomock.Any(), "  ").Return(models.Account{}, ledgerErr("create_account", services.ErrInvalidIdentifier))
			},
			expectedStatusCode: http.StatusBadRequest,
			expectedKind:       "InvalidIdentifier",
		},
		{
			name: "duplicate",
			body: `{"id":"alice"}`,
			setupMocks: func(m *MockAccountCreator) {
				m.EXPECT().CreateAccount(gomock.Any(), "alice").Return(models.Account{}, ledgerErr("create_account", services.ErrDuplicateAccount))
			},
			expectedStatusCode: http.StatusConflict,
			expectedKind:       "DuplicateAccount",
		},
		{
			name: "storage failure",
			body: `{"id":"alice"}`,
			setupMocks: func(m *MockAccountCreator) {
				m.EXPECT().CreateAccount(gomock.Any(), "alice").Return(models.Account{}, &services.LedgerError{
					Op: "create_account", AccountID: "alice", Kind: services.ErrStorageFailure, Cause: errors.New("disk full"),
				})
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedKind:       "StorageFailure",
		},
		{
			name: "unexpected error",
			body: `{"id":"alice"}`,
			setupMocks: func(m *MockAccountCreator) {
				m.EXPECT().CreateAccount(gomock.Any(), "alice").Return(models.Account{}, errors.New("boom"))
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedKind:       "Internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := NewMockAccountCreator(ctrl)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			NewCreateAccountHandler(svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tt.expectedKind == "" {
				var resp AccountResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, AccountResponse{ID: "alice", Balance: 0}, resp)
				return
			}
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.expectedKind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestListAccountsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockAccountLister(ctrl)
	svc.EXPECT().AccountSummary(gomock.Any()).Return([]models.Account{
		{ID: "alice", Balance: 60, Seq: 1},
		{ID: "bob", Balance: 40, Seq: 2},
	}, int64(100))

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	rr := httptest.NewRecorder()
	NewListAccountsHandler(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp ListAccountsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, ListAccountsResponse{
		Accounts: []AccountResponse{{ID: "alice", Balance: 60}, {ID: "bob", Balance: 40}},
		Total:    100,
	}, resp)
}

func TestListAccountsHandler_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockAccountLister(ctrl)
	svc.EXPECT().AccountSummary(gomock.Any()).Return(nil, int64(0))

	rr := httptest.NewRecorder()
	NewListAccountsHandler(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounts", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"accounts":[],"total":0}`, rr.Body.String())
}
