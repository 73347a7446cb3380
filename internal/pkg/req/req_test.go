package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/pkg/errs"
)

type sample struct {
	Name string `json:"name"`
}

func newJSONRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestBindJSON(t *testing.T) {
	var dst sample
	require.Nil(t, BindJSON(newJSONRequest(`{"name":"lobby"}`), &dst))
	assert.Equal(t, "lobby", dst.Name)

	err := BindJSON(newJSONRequest(`{"name":"lobby","extra":1}`), &dst)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrInvalidJSONFormat, err.Code)

	err = BindJSON(newJSONRequest(`{"name":"a"}{"name":"b"}`), &dst)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrExtraContentInBody, err.Code)

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	err = BindJSON(r, &dst)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUnsupportedMediaType, err.Code)
}

func TestBindPage(t *testing.T) {
	page, err := BindPage(httptest.NewRequest(http.MethodGet, "/rooms", nil))
	require.Nil(t, err)
	assert.Equal(t, Page{Limit: DefaultLimit}, page)

	page, err = BindPage(httptest.NewRequest(http.MethodGet, "/rooms?limit=500&offset=10", nil))
	require.Nil(t, err)
	assert.Equal(t, Page{Limit: MaxLimit, Offset: 10}, page)

	_, err = BindPage(httptest.NewRequest(http.MethodGet, "/rooms?limit=-1", nil))
	require.NotNil(t, err)

	_, err = BindPage(httptest.NewRequest(http.MethodGet, "/rooms?offset=abc", nil))
	require.NotNil(t, err)
}

func TestQueryInt64(t *testing.T) {
	v, err := QueryInt64(httptest.NewRequest(http.MethodGet, "/m", nil), "before", 7)
	require.Nil(t, err)
	assert.Equal(t, int64(7), v)

	v, err = QueryInt64(httptest.NewRequest(http.MethodGet, "/m?before=42", nil), "before", 0)
	require.Nil(t, err)
	assert.Equal(t, int64(42), v)

	_, err = QueryInt64(httptest.NewRequest(http.MethodGet, "/m?before=x", nil), "before", 0)
	require.NotNil(t, err)
}
