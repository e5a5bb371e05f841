package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/stone-age-io/links-health-monitor/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const httpTimeout = 15 * time.Second

// ErrNoRecord is returned when no credentials record matches the instance
var ErrNoRecord = errors.New("bootstrap: credentials record not found")

type authRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

type listResponse struct {
	Items      []map[string]interface{} `json:"items"`
	TotalItems int                      `json:"totalItems"`
}

// FetchCredentials writes the NATS .creds file from PocketBase unless it already exists
func FetchCredentials(ctx context.Context, auth *config.AuthConfig, logger *zap.Logger) error {
	return fetch(ctx, &http.Client{Timeout: httpTimeout}, auth, logger)
}

func fetch(ctx context.Context, client *http.Client, auth *config.AuthConfig, logger *zap.Logger) error {
	pb := auth.PocketBase

	if _, err := os.Stat(auth.CredsFile); err == nil {
		logger.Info("Credentials file exists, skipping bootstrap", zap.String("path", auth.CredsFile))
		return nil
	}

	logger.Info("Bootstrapping NATS credentials from PocketBase",
		zap.String("path", auth.CredsFile),
		zap.String("pocketbase_url", pb.URL),
		zap.String("instance_id", pb.InstanceID))

	password := os.Getenv(pb.PasswordEnv)
	if password == "" {
		return fmt.Errorf("bootstrap: environment variable %s is not set or empty", pb.PasswordEnv)
	}

	token, err := authenticate(ctx, client, &pb, password)
	if err != nil {
		return fmt.Errorf("bootstrap: authentication failed: %w", err)
	}

	creds, err := fetchCredsRecord(ctx, client, &pb, token)
	if err != nil {
		return fmt.Errorf("bootstrap: failed to fetch credentials: %w", err)
	}

	if err := writeCredsFile(auth.CredsFile, creds); err != nil {
		return fmt.Errorf("bootstrap: failed to write credentials file: %w", err)
	}
	logger.Info("Credentials file written", zap.String("path", auth.CredsFile))

	return nil
}

// authenticate calls auth-with-password and returns the token
func authenticate(ctx context.Context, client *http.Client, pb *config.PocketBaseConfig, password string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/collections/%s/auth-with-password",
		strings.TrimRight(pb.URL, "/"), url.PathEscape(pb.AuthCollection))

	payload, err := json.Marshal(authRequest{Identity: pb.Identity, Password: password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp authResponse
	if err := do(client, req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("auth response contained no token")
	}

	return resp.Token, nil
}

// fetchCredsRecord reads the creds field of the record matching the instance
func fetchCredsRecord(ctx context.Context, client *http.Client, pb *config.PocketBaseConfig, token string) (string, error) {
	query := url.Values{}
	query.Set("filter", fmt.Sprintf("%s=%q", pb.InstanceField, pb.InstanceID))
	query.Set("perPage", "1")

	endpoint := fmt.Sprintf("%s/api/collections/%s/records?%s",
		strings.TrimRight(pb.URL, "/"), url.PathEscape(pb.Collection), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", token)

	var list listResponse
	if err := do(client, req, &list); err != nil {
		return "", err
	}
	if list.TotalItems == 0 || len(list.Items) == 0 {
		return "", fmt.Errorf("%w: %s=%q in %s", ErrNoRecord, pb.InstanceField, pb.InstanceID, pb.Collection)
	}

	value, ok := list.Items[0][pb.CredsField].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("field %q is missing, empty or not a string", pb.CredsField)
	}

	return value, nil
}

func do(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", req.URL.Path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// writeCredsFile writes content owner-only, creating parent directories
func writeCredsFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
