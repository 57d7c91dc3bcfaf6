package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"latex-ocr/src/apperr"
)

// Credentials identify the application to the SimpleTex API. The DeepSeek key and
// toggle control formula explanation and share the same settings document.
type Credentials struct {
	AppID          string `json:"app_id"`
	AppSecret      string `json:"app_secret"`
	ExplainKey     string `json:"deepseek_api_key"`
	ExplainEnabled bool   `json:"deepseek_enabled"`
}

// storedCredentials distinguishes an absent toggle from an explicit false.
type storedCredentials struct {
	AppID          string `json:"app_id"`
	AppSecret      string `json:"app_secret"`
	ExplainKey     string `json:"deepseek_api_key"`
	ExplainEnabled *bool  `json:"deepseek_enabled"`
}

// Valid reports whether both fields are non-empty.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.AppID) != "" && strings.TrimSpace(c.AppSecret) != ""
}

// Trimmed returns a copy with surrounding whitespace removed.
func (c Credentials) Trimmed() Credentials {
	return Credentials{
		AppID:          strings.TrimSpace(c.AppID),
		AppSecret:      strings.TrimSpace(c.AppSecret),
		ExplainKey:     strings.TrimSpace(c.ExplainKey),
		ExplainEnabled: c.ExplainEnabled,
	}
}

// CanExplain reports whether formula explanation is switched on and has a key.
func (c Credentials) CanExplain() bool {
	return c.ExplainEnabled && strings.TrimSpace(c.ExplainKey) != ""
}

// LoadCredentials reads the credentials document at path. Fields missing from the
// file keep the fallback values. A missing file is not an error; a corrupt file
// yields the fallback and a KindConfig error for logging.
func LoadCredentials(path string, fallback Credentials) (Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return fallback, apperr.Wrapf(err, apperr.KindConfig, "failed to read credentials %s", path)
	}

	var stored storedCredentials
	if err := json.Unmarshal(data, &stored); err != nil {
		return fallback, apperr.Wrapf(err, apperr.KindConfig, "failed to parse credentials %s", path)
	}

	creds := fallback
	if v := strings.TrimSpace(stored.AppID); v != "" {
		creds.AppID = v
	}
	if v := strings.TrimSpace(stored.AppSecret); v != "" {
		creds.AppSecret = v
	}
	if v := strings.TrimSpace(stored.ExplainKey); v != "" {
		creds.ExplainKey = v
	}
	if stored.ExplainEnabled != nil {
		creds.ExplainEnabled = *stored.ExplainEnabled
	}
	return creds, nil
}

// SaveCredentials writes the credentials document, creating parent directories.
func SaveCredentials(path string, creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "failed to create settings directory")
	}
	data, err := json.Marshal(creds.Trimmed())
	if err != nil {
		return apperr.Wrap(err, apperr.KindConfig, "failed to encode credentials")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return apperr.Wrapf(err, apperr.KindIO, "failed to write credentials %s", path)
	}
	return nil
}
