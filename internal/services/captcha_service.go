package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/trystantbm/portfolio-contact/internal/models"
)

// CaptchaVerifier confirms that a client token proves human interaction
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) models.VerificationOutcome
}

type turnstileVerifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip"`
}

type turnstileVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// TurnstileVerifier verifies tokens against Cloudflare Turnstile siteverify
type TurnstileVerifier struct {
	client    *http.Client
	verifyURL string
	secretKey string
	logger    *slog.Logger
}

// NewTurnstileVerifier creates a verifier with a bounded per-call timeout
func NewTurnstileVerifier(verifyURL, secretKey string, timeout time.Duration, logger *slog.Logger) *TurnstileVerifier {
	return &TurnstileVerifier{
		client:    &http.Client{Timeout: timeout},
		verifyURL: verifyURL,
		secretKey: secretKey,
		logger:    logger,
	}
}

// Verify issues one siteverify call. Transport errors become a failed outcome.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) models.VerificationOutcome {
	payload, err := json.Marshal(turnstileVerifyRequest{
		Secret:   v.secretKey,
		Response: token,
		RemoteIP: remoteIP,
	})
	if err != nil {
		return models.VerificationOutcome{Error: "Turnstile verification request failed"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(payload))
	if err != nil {
		v.logger.Error("failed to build turnstile request", slog.Any("error", err))
		return models.VerificationOutcome{Error: "Turnstile verification request failed"}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("turnstile verification error", slog.Any("error", err))
		return models.VerificationOutcome{Error: "Turnstile verification request failed"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.Warn("turnstile returned non-success status", slog.Int("status", resp.StatusCode))
		return models.VerificationOutcome{Error: "Turnstile verification failed"}
	}

	var result turnstileVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		v.logger.Error("failed to decode turnstile response", slog.Any("error", err))
		return models.VerificationOutcome{Error: "Turnstile verification request failed"}
	}

	if !result.Success {
		codes := result.ErrorCodes
		if len(codes) == 0 {
			codes = []string{"unknown"}
		}
		return models.VerificationOutcome{Error: fmt.Sprintf("Turnstile error: %s", strings.Join(codes, ", "))}
	}

	return models.VerificationOutcome{Success: true}
}
