package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddlewareSharesRequestID(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{name: "assigned", header: ""},
		{name: "forwarded", header: "req-42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			handler := LoggingMiddleware(zerolog.New(&logs), NewHandler(fakeService{}, Options{}).Routes())

			req := httptest.NewRequest(http.MethodGet, "/api/tickets/missing", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-ID", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNotFound, rec.Code)
			resp := decodeError(t, rec)
			require.NotEmpty(t, resp.RequestID)
			if tc.header != "" {
				assert.Equal(t, tc.header, resp.RequestID)
			}
			assert.Equal(t, resp.RequestID, rec.Header().Get("X-Request-ID"))

			var entry struct {
				RequestID string `json:"request_id"`
				Status    int    `json:"status"`
			}
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
			assert.Equal(t, resp.RequestID, entry.RequestID)
			assert.Equal(t, http.StatusNotFound, entry.Status)
		})
	}
}
