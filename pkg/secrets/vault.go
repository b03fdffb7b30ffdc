// Package secrets copies credentials from a Vault KV engine into the process
// environment before configuration is loaded.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
	"github.com/zatekoja/stayaudit/pkg/retry"
)

// VaultConfig locates the secret holding GEMINI_API_KEY, DB_PASSWORD and friends
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	Overwrite bool
}

// Result counts the variables set and the ones already present
type Result struct {
	Loaded  int
	Skipped int
}

// VaultConfigFromEnv reads VAULT_* variables
func VaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
	if v := os.Getenv("VAULT_MOUNT"); v != "" {
		cfg.Mount = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && v > 0 {
		cfg.Timeout = time.Duration(v) * time.Millisecond
	}
	return cfg
}

// ApplyVaultSecrets fetches the secret and exports every key as an
// environment variable. Existing variables win unless Overwrite is set.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (Result, error) {
	if !cfg.Enabled {
		return Result{}, nil
	}
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return Result{}, apperrors.NewConfigurationAbsentError("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	url := secretURL(cfg)
	client := &http.Client{Timeout: cfg.Timeout}

	var data map[string]any
	err := retry.DoWithLog(ctx, retry.RemoteCallConfig(3), "Vault",
		func() error {
			var err error
			data, err = fetch(ctx, client, url, cfg)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Vault fetch failed")
		},
	)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for key, value := range data {
		if !cfg.Overwrite && os.Getenv(key) != "" {
			res.Skipped++
			continue
		}
		if err := os.Setenv(key, stringify(value)); err != nil {
			return res, fmt.Errorf("set %s: %w", key, err)
		}
		res.Loaded++
	}

	log.Info().Str("path", cfg.Path).Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("Vault secrets applied")
	return res, nil
}

func secretURL(cfg VaultConfig) string {
	addr := strings.TrimRight(cfg.Addr, "/")
	mount := strings.Trim(cfg.Mount, "/")
	path := strings.TrimLeft(cfg.Path, "/")
	if cfg.KVVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path)
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path)
}

func fetch(ctx context.Context, client *http.Client, url string, cfg VaultConfig) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("X-Vault-Token", cfg.Token)
	if cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", cfg.Namespace)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewRemoteCallError("vault request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewRemoteCallError("vault response unreadable", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, apperrors.NewRemoteCallError("vault returned "+resp.Status, nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Permanent(apperrors.NewNotFoundError("vault secret " + cfg.Path + " not found"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, retry.Permanent(apperrors.NewRemoteCallError(
			fmt.Sprintf("vault returned %s: %s", resp.Status, strings.TrimSpace(string(body))), nil))
	}

	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Data == nil {
		return nil, retry.Permanent(apperrors.NewMalformedResponseError("vault response missing data"))
	}
	if cfg.KVVersion == 1 {
		return payload.Data, nil
	}
	inner, ok := payload.Data["data"].(map[string]any)
	if !ok {
		return nil, retry.Permanent(apperrors.NewMalformedResponseError("vault response missing data for KV v2"))
	}
	return inner, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
