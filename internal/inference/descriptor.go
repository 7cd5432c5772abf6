// Package inference talks to the control plane of the prediction service so
// monitoring can verify the serving function is deployed and active.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/driftwatch-labs/driftwatch-go/internal/platform/env"
)

// Descriptor exposes the operational state of a serving function.
type Descriptor interface {
	GetState(ctx context.Context, function string) (string, error)
}

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

func ConfigFromEnv() (Config, error) {
	timeout, err := env.Duration("DRIFTWATCH_INFERENCE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		BaseURL:      env.String("DRIFTWATCH_INFERENCE_URL", "http://localhost:9090"),
		TokenURL:     env.String("DRIFTWATCH_INFERENCE_TOKEN_URL", ""),
		ClientID:     env.String("DRIFTWATCH_INFERENCE_CLIENT_ID", ""),
		ClientSecret: env.String("DRIFTWATCH_INFERENCE_CLIENT_SECRET", ""),
		Timeout:      timeout,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("inference base url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("inference base url: %w", err)
	}
	if c.TokenURL != "" && (c.ClientID == "" || c.ClientSecret == "") {
		return errors.New("client credentials are required when a token url is set")
	}
	if c.Timeout <= 0 {
		return errors.New("inference timeout must be positive")
	}
	return nil
}

// HTTPDescriptor queries the control plane over HTTP. When a token URL is
// configured, requests carry client-credentials bearer tokens.
type HTTPDescriptor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDescriptor(cfg Config) (*HTTPDescriptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		client = cc.Client(context.Background())
		client.Timeout = cfg.Timeout
	}
	return &HTTPDescriptor{baseURL: strings.TrimRight(cfg.BaseURL, "/"), client: client}, nil
}

type functionDescription struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// GetState returns the function's lifecycle state, e.g. "Active" or "Pending".
func (d *HTTPDescriptor) GetState(ctx context.Context, function string) (string, error) {
	if strings.TrimSpace(function) == "" {
		return "", errors.New("function name is required")
	}
	endpoint := d.baseURL + "/v1/functions/" + url.PathEscape(function)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("describe function %s: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("describe function %s: unexpected status %d", function, resp.StatusCode)
	}

	var desc functionDescription
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return "", fmt.Errorf("decode function description: %w", err)
	}
	if desc.State == "" {
		return "", fmt.Errorf("function %s reported no state", function)
	}
	return desc.State, nil
}
