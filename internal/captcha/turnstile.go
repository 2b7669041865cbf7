package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
)

// IVerifier checks a Cloudflare Turnstile response token.
type IVerifier interface {
	// Enabled reports whether tokens are checked at all.
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// siteverifyResponse is the body returned by the siteverify endpoint.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
	Action     string   `json:"action"`
}

type turnstileVerifier struct {
	secretKey  string
	verifyURL  string
	httpClient *http.Client
}

// NewTurnstileVerifier creates a verifier. Without a secret key it is disabled.
func NewTurnstileVerifier(cfg *config.Config) IVerifier {
	return &turnstileVerifier{
		secretKey:  cfg.TurnstileSecretKey,
		verifyURL:  cfg.TurnstileVerifyURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *turnstileVerifier) Enabled() bool {
	return v.secretKey != ""
}

// Verify calls the siteverify endpoint. A false result with a nil error means Cloudflare
// rejected the token.
func (v *turnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if !v.Enabled() {
		return true, nil
	}

	formData := map[string]string{
		"secret":   v.secretKey,
		"response": token,
	}
	if remoteIP != "" {
		formData["remoteip"] = remoteIP
	}
	jsonData, err := json.Marshal(formData)
	if err != nil {
		return false, fmt.Errorf("failed to encode turnstile request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(jsonData))
	if err != nil {
		return false, fmt.Errorf("failed to create turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to contact turnstile service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read turnstile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile verification failed with status %d", resp.StatusCode)
	}

	var parsed siteverifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("failed to parse turnstile response: %w", err)
	}
	if !parsed.Success {
		log.Printf("Turnstile rejected token from %s: %v", remoteIP, parsed.ErrorCodes)
	}
	return parsed.Success, nil
}
