package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trystantbm/portfolio-contact/internal/models"
)

func newParseRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestParseSubmission_JSON(t *testing.T) {
	body := `{"name":" Jane Doe ","email":"jane@example.com","message":"  hi there friend  ",` +
		`"turnstileToken":"tok","website":" ","timestamp":1700000000000,"extra":{"ignored":true}}`

	sub, err := ParseSubmission(newParseRequest(body, "application/json"))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", sub.Name)
	assert.Equal(t, "jane@example.com", sub.Email)
	assert.Equal(t, "hi there friend", sub.Message)
	assert.Equal(t, "tok", sub.TurnstileToken)
	assert.Equal(t, "", sub.Website)
	assert.True(t, sub.RenderedAt.Equal(time.UnixMilli(1700000000000)))

	_, err = uuid.Parse(sub.ID)
	assert.NoError(t, err)
}

func TestParseSubmission_Form(t *testing.T) {
	body := "name=Jane+Doe&email=jane%40example.com&message=hello+there+friend&turnstileToken=tok&timestamp=1700000000000"

	sub, err := ParseSubmission(newParseRequest(body, "application/x-www-form-urlencoded"))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", sub.Name)
	assert.Equal(t, "jane@example.com", sub.Email)
	assert.True(t, sub.HasRenderTime())
}

func TestParseSubmission_UnsupportedContentType(t *testing.T) {
	_, err := ParseSubmission(newParseRequest(`{}`, "text/plain"))
	assert.True(t, errors.Is(err, models.ErrInvalidFormat))
}

func TestParseSubmission_RejectsTrailingData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"garbage", `{"name":"Jane Doe"} trailing-garbage`},
		{"second object", `{"name":"Jane Doe"}{"name":"Eve"}`},
		{"stray brace", `{"name":"Jane Doe"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubmission(newParseRequest(tt.body, "application/json"))
			assert.True(t, errors.Is(err, models.ErrInvalidFormat))
		})
	}
}

func TestParseSubmission_AllowsTrailingWhitespace(t *testing.T) {
	sub, err := ParseSubmission(newParseRequest("{\"name\":\"Jane Doe\"}\n  \n", "application/json"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", sub.Name)
}

func TestParseSubmission_NonStringFieldsAreAbsent(t *testing.T) {
	sub, err := ParseSubmission(newParseRequest(`{"name":["Jane"],"email":null,"message":42}`, "application/json"))
	require.NoError(t, err)

	assert.Empty(t, sub.Name)
	assert.Empty(t, sub.Email)
	assert.Equal(t, "42", sub.Message)
}

func TestParseRenderTime(t *testing.T) {
	tests := []struct {
		raw     string
		present bool
	}{
		{"", false},
		{"0", false},
		{"-5", false},
		{"abc", false},
		{"NaN", false},
		{"1e300", false},
		{"1700000000000", true},
		{"1700000000000.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.present, !parseRenderTime(tt.raw).IsZero())
		})
	}
}
