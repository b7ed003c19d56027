package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	WorkflowPath string
	RunOnce      bool
	History      HistoryEnvConfig
	Drive        DriveEnvConfig
	Feed         FeedEnvConfig
	Playlist     PlaylistEnvConfig
	Probe        ProbeEnvConfig
	Download     DownloadEnvConfig
	SMTP         SMTPEnvConfig
	OTel         OTelEnvConfig
}

// HistoryEnvConfig selects and parameterizes the history backend.
// Backend is one of "file", "sqlite", or "drive".
type HistoryEnvConfig struct {
	Backend    string
	FilePath   string
	SQLiteDSN  string
	ObjectName string
}

type DriveEnvConfig struct {
	CredentialsPath string
	TokenPath       string
}

type FeedEnvConfig struct {
	HTTPTimeout time.Duration
	UserAgent   string
}

type PlaylistEnvConfig struct {
	Timeout time.Duration
}

type ProbeEnvConfig struct {
	Timeout time.Duration
}

type DownloadEnvConfig struct {
	Timeout time.Duration
}

type SMTPEnvConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

const (
	HistoryBackendFile   = "file"
	HistoryBackendSQLite = "sqlite"
	HistoryBackendDrive  = "drive"
)

func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	return EnvConfig{
		WorkflowPath: envString("CASTPOST_CONFIG", "castpost.yaml"),
		RunOnce:      envBool("RUN_ONCE", false),
		History: HistoryEnvConfig{
			Backend:    strings.ToLower(envString("HISTORY_BACKEND", HistoryBackendFile)),
			FilePath:   envString("HISTORY_FILE", "history.yaml"),
			SQLiteDSN:  envString("HISTORY_SQLITE_DSN", "history.db"),
			ObjectName: envString("HISTORY_OBJECT_NAME", "castpost-history.yaml"),
		},
		Drive: DriveEnvConfig{
			CredentialsPath: envString("DRIVE_CREDENTIALS_FILE", "credentials.json"),
			TokenPath:       envString("DRIVE_TOKEN_FILE", "token.json"),
		},
		Feed: FeedEnvConfig{
			HTTPTimeout: envDuration("FEED_HTTP_TIMEOUT", 10*time.Second),
			UserAgent:   envString("FEED_USER_AGENT", "castpost/0.1"),
		},
		Playlist: PlaylistEnvConfig{
			Timeout: envDuration("PLAYLIST_TIMEOUT", time.Minute),
		},
		Probe: ProbeEnvConfig{
			Timeout: envDuration("PROBE_TIMEOUT", 30*time.Second),
		},
		Download: DownloadEnvConfig{
			Timeout: envDuration("DOWNLOAD_TIMEOUT", 15*time.Minute),
		},
		SMTP: SMTPEnvConfig{
			Host:               envString("SMTP_HOST", ""),
			Port:               envInt("SMTP_PORT", 587),
			User:               envString("SMTP_USER", ""),
			Password:           envString("SMTP_PASSWORD", ""),
			TLSMode:            envString("SMTP_TLS_MODE", ""),
			InsecureSkipVerify: envBool("SMTP_INSECURE_SKIP_VERIFY", false),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "castpost")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := parseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
