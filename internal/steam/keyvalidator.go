package steam

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	// The history endpoint with a single match requested is the cheapest
	// call that exercises the key.
	validationQuery = "?key=%s&matches_requested=1"

	defaultValidationTimeout = 10 * time.Second
)

// KeyValidator validates Steam API keys by making a minimal test request.
type KeyValidator struct {
	httpClient *http.Client
	baseURL    string
}

// KeyValidatorOption configures a KeyValidator.
type KeyValidatorOption func(*KeyValidator)

// WithValidatorBaseURL sets a custom base URL (useful for testing).
func WithValidatorBaseURL(url string) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.baseURL = url
	}
}

// WithValidatorTimeout sets a custom timeout for validation requests.
func WithValidatorTimeout(timeout time.Duration) KeyValidatorOption {
	return func(v *KeyValidator) {
		v.httpClient.Timeout = timeout
	}
}

// NewKeyValidator creates a new KeyValidator with the given options.
func NewKeyValidator(opts ...KeyValidatorOption) *KeyValidator {
	v := &KeyValidator{
		httpClient: &http.Client{
			Timeout: defaultValidationTimeout,
		},
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateKey validates an API key by making a test request.
// Returns:
//   - (true, nil) if the key is valid
//   - (false, nil) if the key is rejected (403)
//   - (false, error) if there was a network/server error (validity unknown)
func (v *KeyValidator) ValidateKey(ctx context.Context, apiKey string) (bool, error) {
	if apiKey == "" {
		return false, fmt.Errorf("API key cannot be empty")
	}

	url := v.baseURL + historyPath + fmt.Sprintf(validationQuery, apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
