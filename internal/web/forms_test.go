package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    string  `schema:"-"`
	Name  string  `schema:"name" validate:"required,max=5"`
	Email string  `schema:"email" validate:"omitempty,email"`
	Count int     `schema:"count" validate:"gte=1"`
	Cost  float64 `schema:"cost"`
	On    bool    `schema:"on"`
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDecodeFormIgnoresUnknownKeys(t *testing.T) {
	var s sample
	err := DecodeForm(postForm(url.Values{
		"name":  {"Ana"},
		"count": {"3"},
		"cost":  {"12.5"},
		"on":    {"true"},
		"op":    {"save"},
	}), &s)
	require.NoError(t, err)
	assert.Equal(t, sample{Name: "Ana", Count: 3, Cost: 12.5, On: true}, s)
}

func TestDecodeFormRejectsBadNumber(t *testing.T) {
	var s sample
	err := DecodeForm(postForm(url.Values{"count": {"many"}}), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web: decode form")
}

func TestValidateUsesFormNames(t *testing.T) {
	err := Validate(sample{Name: "", Email: "nope", Count: 0})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "email must be an email address")
	assert.Contains(t, msg, "count must be at least 1")

	assert.NoError(t, Validate(sample{Name: "Ana", Count: 1}))
	assert.EqualError(t, Validate(sample{Name: "Anabella", Count: 1}), "name must be at most 5")
}
