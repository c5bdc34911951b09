package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("auth_token=abc", "auth_token"))
	assert.Equal(t, "abc", extractCookieToken("theme=dark; auth_token=abc; lang=en", "auth_token"))
	assert.Equal(t, "", extractCookieToken("old_auth_token=abc", "auth_token"))
	assert.Equal(t, "", extractCookieToken("", "auth_token"))
}

func TestRequestTokenPrefersCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", requestToken(r))

	r.Header.Set("Cookie", "auth_token=cookie-token")
	assert.Equal(t, "cookie-token", requestToken(r))
}
