package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func callerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := GetCallerFromContext(r.Context())
		_, _ = w.Write([]byte(caller))
	})
}

func TestBearerTokenOpenWhenKeyEmpty(t *testing.T) {
	rr := httptest.NewRecorder()
	BearerToken("")(callerEcho()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/tools/get_balance", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, CallerAnonymous, rr.Body.String())
}

func TestBearerTokenRejectsWrongKey(t *testing.T) {
	for _, header := range []string{"", "Bearer nope", "secret-1"} {
		req := httptest.NewRequest(http.MethodPost, "/tools/get_balance", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		BearerToken("secret")(callerEcho()).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, header)
	}
}

func TestBearerTokenAcceptsKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/tools/get_balance", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	BearerToken("secret")(callerEcho()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, CallerToken, rr.Body.String())
}

func TestGetCallerFromContextMissing(t *testing.T) {
	_, ok := GetCallerFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
