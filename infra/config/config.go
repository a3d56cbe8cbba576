package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application-level configuration.
type Config struct {
	DataDir     string
	DBPath      string
	SessionPath string
	UIStatePath string

	LogPath   string
	LogLevel  string
	LogFormat string

	PageSize int

	Media MediaConfig
	Music MusicConfig
}

// MediaConfig points at an S3-compatible bucket. Media uploads are
// disabled when Bucket is empty.
type MediaConfig struct {
	Bucket    string
	Endpoint  string // e.g. "http://localhost:9000" for MinIO
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string // prefix for object URLs; defaults to Endpoint/Bucket
}

// Enabled reports whether a bucket is configured.
func (m MediaConfig) Enabled() bool { return m.Bucket != "" }

// MusicConfig holds the music link resolver endpoints.
type MusicConfig struct {
	DeezerURL string
	OEmbedURL string
}

// Load reads configuration from environment variables. Variables set in
// <home>/momentlog.env are used when the environment does not set them.
//
//	MOMENTLOG_HOME          data directory (default: ~/.config/momentlog)
//	MOMENTLOG_DB            sqlite database path (default: <home>/momentlog.db)
//	MOMENTLOG_SESSION       signed-in session file (default: <home>/session.json)
//	MOMENTLOG_LOG_PATH      log file (default: <home>/momentlog.log)
//	MOMENTLOG_LOG_LEVEL     trace|debug|info|warn|error|off (default: info)
//	MOMENTLOG_LOG_FORMAT    json|console (default: json)
//	MOMENTLOG_PAGE_SIZE     moments per page, 1-50 (default: 10)
//	MOMENTLOG_S3_BUCKET, MOMENTLOG_S3_ENDPOINT, MOMENTLOG_S3_REGION,
//	MOMENTLOG_S3_ACCESS_KEY, MOMENTLOG_S3_SECRET_KEY, MOMENTLOG_S3_PUBLIC_URL
//	MOMENTLOG_DEEZER_URL    Deezer API base (default: https://api.deezer.com)
//	MOMENTLOG_OEMBED_URL    Spotify oEmbed endpoint (default: https://open.spotify.com/oembed)
func Load() (Config, error) {
	dir := os.Getenv("MOMENTLOG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "momentlog")
	}
	if err := godotenv.Load(filepath.Join(dir, "momentlog.env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read momentlog.env: %w", err)
	}

	pageSize := 10
	if raw := strings.TrimSpace(os.Getenv("MOMENTLOG_PAGE_SIZE")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			return Config{}, fmt.Errorf("invalid MOMENTLOG_PAGE_SIZE: must be an integer between 1 and 50")
		}
		pageSize = n
	}

	media := MediaConfig{
		Bucket:    os.Getenv("MOMENTLOG_S3_BUCKET"),
		Endpoint:  strings.TrimRight(os.Getenv("MOMENTLOG_S3_ENDPOINT"), "/"),
		Region:    envOr("MOMENTLOG_S3_REGION", "us-east-1"),
		AccessKey: os.Getenv("MOMENTLOG_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("MOMENTLOG_S3_SECRET_KEY"),
		PublicURL: strings.TrimRight(os.Getenv("MOMENTLOG_S3_PUBLIC_URL"), "/"),
	}
	if media.Endpoint != "" {
		if err := absoluteURL("MOMENTLOG_S3_ENDPOINT", media.Endpoint, false); err != nil {
			return Config{}, err
		}
	}
	if media.PublicURL == "" && media.Endpoint != "" && media.Bucket != "" {
		media.PublicURL = media.Endpoint + "/" + media.Bucket
	}

	music := MusicConfig{
		DeezerURL: strings.TrimRight(envOr("MOMENTLOG_DEEZER_URL", "https://api.deezer.com"), "/"),
		OEmbedURL: envOr("MOMENTLOG_OEMBED_URL", "https://open.spotify.com/oembed"),
	}
	if err := absoluteURL("MOMENTLOG_DEEZER_URL", music.DeezerURL, true); err != nil {
		return Config{}, err
	}
	if err := absoluteURL("MOMENTLOG_OEMBED_URL", music.OEmbedURL, true); err != nil {
		return Config{}, err
	}

	return Config{
		DataDir:     dir,
		DBPath:      envOr("MOMENTLOG_DB", filepath.Join(dir, "momentlog.db")),
		SessionPath: envOr("MOMENTLOG_SESSION", filepath.Join(dir, "session.json")),
		UIStatePath: filepath.Join(dir, "ui_state.json"),
		LogPath:     envOr("MOMENTLOG_LOG_PATH", filepath.Join(dir, "momentlog.log")),
		LogLevel:    strings.ToLower(envOr("MOMENTLOG_LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(envOr("MOMENTLOG_LOG_FORMAT", "json")),
		PageSize:    pageSize,
		Media:       media,
		Music:       music,
	}, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func absoluteURL(name, raw string, httpsOnly bool) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must be an absolute URL", name)
	}
	if httpsOnly && parsed.Scheme != "https" {
		return fmt.Errorf("invalid %s: only https is allowed", name)
	}
	return nil
}
