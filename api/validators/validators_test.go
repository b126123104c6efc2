package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/schema"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

type checkoutBody struct {
	Amount     string `json:"amount" validate:"required"`
	DonorEmail string `json:"donorEmail" validate:"omitempty,email"`
	Count      int    `json:"count"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	var body checkoutBody
	require.NoError(t, DecodeJSONBody(post(`{"amount":"5","donorEmail":"fan@example.com"}`), &body))
	assert.Equal(t, "5", body.Amount)
	assert.Equal(t, "fan@example.com", body.DonorEmail)
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := map[string]struct {
		raw   string
		field string
	}{
		"empty":          {raw: ``},
		"malformed":      {raw: `{"amount":`},
		"not json":       {raw: `amount=5`},
		"trailing data":  {raw: `{"amount":"5"} {"amount":"6"}`},
		"unknown field":  {raw: `{"amount":"5","tip":"1"}`, field: "tip"},
		"wrong type":     {raw: `{"amount":"5","count":"three"}`, field: "count"},
		"tag failure":    {raw: `{"amount":"5","donorEmail":"nope"}`, field: "donorEmail"},
		"missing":        {raw: `{"donorEmail":"fan@example.com"}`, field: "amount"},
		"oversized body": {raw: `{"amount":"` + strings.Repeat("9", maxBodyBytes) + `"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var body checkoutBody
			err := DecodeJSONBody(post(tc.raw), &body)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
			if tc.field != "" {
				assert.Equal(t, tc.field, schema.FieldOf(err))
			}
		})
	}
}

func TestDecodeJSONBodyIntoMap(t *testing.T) {
	body := map[string]any{}
	require.NoError(t, DecodeJSONBody(post(`{"anything":1}`), &body))
	assert.EqualValues(t, 1, body["anything"])
}

func TestParsePageParams(t *testing.T) {
	params, err := ParsePageParams(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: pagination.DefaultLimit}, params)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Now(), ID: types.NewObjectID()})
	params, err = ParsePageParams(httptest.NewRequest(http.MethodGet, "/?limit=10&cursor="+cursor, nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: cursor}, params)

	for query, field := range map[string]string{
		"?limit=0":       "limit",
		"?limit=abc":     "limit",
		"?limit=101":     "limit",
		"?cursor=%25%25": "cursor",
	} {
		_, err := ParsePageParams(httptest.NewRequest(http.MethodGet, "/"+query, nil))
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: %v", query, err)
		assert.Equal(t, field, schema.FieldOf(err), query)
	}
}

func TestParseObjectIDParam(t *testing.T) {
	id := types.NewObjectID()
	got, err := ParseObjectIDParam(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "photoId", id.Hex()), "photoId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	for _, raw := range []string{"xyz", " "} {
		_, err := ParseObjectIDParam(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "photoId", raw), "photoId")
		assert.Equal(t, "photoId", schema.FieldOf(err))
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}
