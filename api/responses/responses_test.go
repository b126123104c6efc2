package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"releaseId": "r1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"releaseId":"r1"}}`, rec.Body.String())
}

func TestWriteSuccessFallsBackOnUnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeInternal), decodeError(t, rec).Code)
}

func TestWriteError(t *testing.T) {
	cases := map[string]struct {
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		withDetails bool
	}{
		"validation echoes message and details": {
			err:         pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]any{"field": "category"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "bad input",
			withDetails: true,
		},
		"duplicate carries the existing id": {
			err:         pkgerrors.New(pkgerrors.CodeDuplicate, "photo already uploaded").WithDetails(map[string]any{"existingId": "65f1c2a4e4b0a1b2c3d4e5f6"}),
			status:      http.StatusConflict,
			code:        pkgerrors.CodeDuplicate,
			message:     "photo already uploaded",
			withDetails: true,
		},
		"not found": {
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "donation not found"),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "donation not found",
		},
		"untyped errors stay private": {
			err:     errors.New("pq: connection refused on 10.0.0.3"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		"nil error": {
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.Header().Set(RequestIDHeader, "req-123")
			WriteError(context.Background(), nil, rec, tc.err)

			require.Equal(t, tc.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, string(tc.code), body.Code)
			assert.Equal(t, tc.message, body.Message)
			assert.Equal(t, "req-123", body.RequestID)
			if tc.withDetails {
				assert.NotNil(t, body.Details)
			} else {
				assert.Nil(t, body.Details)
			}
		})
	}
}
