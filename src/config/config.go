package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultEndpoint       = "https://server.simpletex.cn/api/latex_ocr"
	DefaultExplainURL     = "https://api.deepseek.com/chat/completions"
	DefaultExplainModel   = "deepseek-chat"
	DefaultRequestTimeout = 30
	DefaultCaptureDelayMs = 100
	EnvFileEnvVar         = "LATEX_OCR_ENV"
	DataDirEnvVar         = "LATEX_OCR_DATA_DIR"

	appDirName       = "latex-ocr"
	credentialsFile  = "settings.json"
	historyFile      = "history.json"
	logDirectoryName = "logs"
)

type LoadOptions struct {
	DataDirOverride  string
	EndpointOverride string
}

type Config struct {
	Endpoint          string
	ExplainEndpoint   string
	ExplainModel      string
	RequestTimeoutSec int
	CaptureDelayMs    int
	EnableFileLogging bool
	DataDir           string
	// Credentials holds the env-provided defaults; settings.json overrides them.
	Credentials Credentials
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use LATEX_OCR_ENV env var as a path to a config file
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	endpoint := getEnvWithDefault("SIMPLETEX_ENDPOINT", DefaultEndpoint)
	if override := strings.TrimSpace(opts.EndpointOverride); override != "" {
		endpoint = override
	}

	cfg := &Config{
		Endpoint:          endpoint,
		ExplainEndpoint:   getEnvWithDefault("EXPLAIN_ENDPOINT", DefaultExplainURL),
		ExplainModel:      getEnvWithDefault("EXPLAIN_MODEL", DefaultExplainModel),
		RequestTimeoutSec: getEnvPositiveInt("REQUEST_TIMEOUT_SEC", DefaultRequestTimeout),
		CaptureDelayMs:    getEnvPositiveInt("CAPTURE_DELAY_MS", DefaultCaptureDelayMs),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		DataDir:           resolveDataDir(opts),
		Credentials: Credentials{
			AppID:          strings.TrimSpace(os.Getenv("SIMPLETEX_APP_ID")),
			AppSecret:      strings.TrimSpace(os.Getenv("SIMPLETEX_APP_SECRET")),
			ExplainKey:     strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
			ExplainEnabled: strings.ToLower(os.Getenv("EXPLAIN_ENABLED")) == "true",
		},
	}

	return cfg, nil
}

// RequestTimeout returns the bounded timeout applied to every OCR and explanation request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// CaptureDelay returns the pause between tearing down the overlay and grabbing pixels.
func (c *Config) CaptureDelay() time.Duration {
	return time.Duration(c.CaptureDelayMs) * time.Millisecond
}

func (c *Config) CredentialsPath() string { return filepath.Join(c.DataDir, credentialsFile) }

func (c *Config) HistoryPath() string { return filepath.Join(c.DataDir, historyFile) }

func (c *Config) LogDir() string { return filepath.Join(c.DataDir, logDirectoryName) }

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveDataDir(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.DataDirOverride); override != "" {
		return override
	}
	if dir := strings.TrimSpace(os.Getenv(DataDirEnvVar)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, appDirName)
	}
	return "."
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
