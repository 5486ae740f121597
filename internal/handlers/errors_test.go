package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/middlewares"
	"github.com/sbilibin2017/upi-ledger/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core).Sugar()
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func TestWriteErrors_LogRequestID(t *testing.T) {
	tests := []struct {
		name          string
		write         func(w http.ResponseWriter, r *http.Request)
		expectedCode  int
		expectedLevel zapcore.Level
		expectedMsg   string
	}{
		{
			name: "validation failure",
			write: func(w http.ResponseWriter, r *http.Request) {
				writeLedgerError(w, r, &services.LedgerError{Op: "transfer", Kind: services.ErrInsufficientFunds})
			},
			expectedCode:  http.StatusConflict,
			expectedLevel: zapcore.WarnLevel,
			expectedMsg:   "request rejected",
		},
		{
			name: "storage failure",
			write: func(w http.ResponseWriter, r *http.Request) {
				writeLedgerError(w, r, &services.LedgerError{Op: "transfer", Kind: services.ErrStorageFailure, Cause: errors.New("disk full")})
			},
			expectedCode:  http.StatusInternalServerError,
			expectedLevel: zapcore.ErrorLevel,
			expectedMsg:   "request failed",
		},
		{
			name: "unknown error",
			write: func(w http.ResponseWriter, r *http.Request) {
				writeLedgerError(w, r, errors.New("boom"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedLevel: zapcore.ErrorLevel,
			expectedMsg:   "request failed",
		},
		{
			name: "bad request body",
			write: func(w http.ResponseWriter, r *http.Request) {
				writeBadRequest(w, r, errors.New("unexpected EOF"))
			},
			expectedCode:  http.StatusBadRequest,
			expectedLevel: zapcore.WarnLevel,
			expectedMsg:   "failed to decode request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observeLogs(t)

			handler := middlewares.LoggingMiddleware(zap.NewNop().Sugar())(http.HandlerFunc(tt.write))
			req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader("{}"))
			req.Header.Set(middlewares.RequestIDHeader, "req-7")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			entries := logs.FilterMessage(tt.expectedMsg).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.expectedLevel, entries[0].Level)
			assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
		})
	}
}
