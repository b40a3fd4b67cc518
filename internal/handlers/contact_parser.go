package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trystantbm/portfolio-contact/internal/models"
)

// MaxBodyBytes caps how much of a submission body is read
const MaxBodyBytes = 64 << 10

// maxSafeMillis is the largest integer a JSON number carries exactly
const maxSafeMillis = 1 << 53

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Body field names sent by the contact form
const (
	fieldName      = "name"
	fieldEmail     = "email"
	fieldMessage   = "message"
	fieldToken     = "turnstileToken"
	fieldWebsite   = "website"
	fieldTimestamp = "timestamp"
)

// ParseSubmission reads a JSON or urlencoded contact body. Any other content
// type, an oversized body, or a malformed payload wraps models.ErrInvalidFormat.
func ParseSubmission(r *http.Request) (*models.ContactSubmission, error) {
	contentType := r.Header.Get("Content-Type")

	var fields map[string]string
	var err error
	switch {
	case strings.Contains(contentType, contentTypeJSON):
		fields, err = readJSONFields(r.Body)
	case strings.Contains(contentType, contentTypeForm):
		fields, err = readFormFields(r.Body)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", models.ErrInvalidFormat, contentType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidFormat, err)
	}

	return &models.ContactSubmission{
		ID:             uuid.NewString(),
		Name:           fields[fieldName],
		Email:          fields[fieldEmail],
		Message:        fields[fieldMessage],
		TurnstileToken: fields[fieldToken],
		Website:        fields[fieldWebsite],
		RenderedAt:     parseRenderTime(fields[fieldTimestamp]),
	}, nil
}

func readBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
	}
	return data, nil
}

func readJSONFields(body io.Reader) (map[string]string, error) {
	data, err := readBody(body)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("body is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = strings.TrimSpace(v)
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		}
		// null, arrays and objects are treated as absent
	}
	return fields, nil
}

func readFormFields(body io.Reader) (map[string]string, error) {
	data, err := readBody(body)
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(string(data))
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(values))
	for key := range values {
		fields[key] = strings.TrimSpace(values.Get(key))
	}
	return fields, nil
}

// parseRenderTime converts a millisecond epoch into a time. Missing,
// non-numeric and non-positive values yield the zero time.
func parseRenderTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(ms > 0 && ms <= maxSafeMillis) {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}
