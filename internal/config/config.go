package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:7410"
	DefaultDBFileName  = ".topten.db"
	DefaultLogLevel    = "info"
	DefaultOwnerID     = "anonymous"
	DefaultKeyPrefix   = "lists"
	DefaultBlobDirName = ".topten-blobs"

	DefaultMaxUploadBytes     int64 = 50 * 1024 * 1024
	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024
	DefaultResolveConcurrency       = 4
	DefaultSearchLimit              = 10

	configFileName           = ".topten.toml"
	configDirEnvKey          = "TOPTEN_CONFIG_DIR"
	trustProjectConfigEnvKey = "TOPTEN_TRUST_PROJECT_CONFIG"

	apiURLEnvKey         = "TOPTEN_API_URL"
	dbPathEnvKey         = "TOPTEN_DB"
	blobURLEnvKey        = "TOPTEN_BLOB_URL"
	publicBaseEnvKey     = "TOPTEN_PUBLIC_BASE_URL"
	searchAPIKeyEnvKey   = "TOPTEN_SEARCH_API_KEY"
	logLevelEnvKey       = "TOPTEN_LOG_LEVEL"
	allowedTypesEnvKey   = "TOPTEN_UPLOAD_ALLOWED_MEDIA_TYPES"
	searchEndpointEnvKey = "TOPTEN_SEARCH_ENDPOINT"
)

// DefaultAllowedMediaTypes is the upload allow-list used when none is configured.
var DefaultAllowedMediaTypes = []string{
	"image/avif",
	"image/gif",
	"image/jpeg",
	"image/png",
	"image/webp",
}

// BlobConfig selects the bucket uploaded images are written to.
type BlobConfig struct {
	URL           string `toml:"url"`
	PublicBaseURL string `toml:"public_base_url"`
	KeyPrefix     string `toml:"key_prefix"`
}

// UploadConfig bounds multipart submissions.
type UploadConfig struct {
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	AllowedMediaTypes  []string `toml:"allowed_media_types"`
	ResolveConcurrency int      `toml:"resolve_concurrency"`
}

// SearchConfig configures the external search proxy.
type SearchConfig struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
	Limit    int    `toml:"limit"`
}

// Config defines runtime configuration for topten.
type Config struct {
	APIURL                   string       `toml:"api_url"`
	DBPath                   string       `toml:"db_path"`
	LogLevel                 string       `toml:"log_level"`
	OwnerID                  string       `toml:"owner_id"`
	Blob                     BlobConfig   `toml:"blob"`
	Uploads                  UploadConfig `toml:"uploads"`
	Search                   SearchConfig `toml:"search"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		OwnerID:  DefaultOwnerID,
		Blob: BlobConfig{
			KeyPrefix: DefaultKeyPrefix,
		},
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
			AllowedMediaTypes:  append([]string(nil), DefaultAllowedMediaTypes...),
			ResolveConcurrency: DefaultResolveConcurrency,
		},
		Search: SearchConfig{
			Limit: DefaultSearchLimit,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"owner_id",
	"blob.url",
	"blob.public_base_url",
	"blob.key_prefix",
	"uploads.max_upload_bytes",
	"uploads.multipart_max_memory",
	"uploads.allowed_media_types",
	"uploads.resolve_concurrency",
	"search.endpoint",
	"search.api_key",
	"search.limit",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "owner_id":
		return c.OwnerID, nil
	case "blob.url":
		return c.Blob.URL, nil
	case "blob.public_base_url":
		return c.Blob.PublicBaseURL, nil
	case "blob.key_prefix":
		return c.Blob.KeyPrefix, nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "uploads.allowed_media_types":
		return strings.Join(c.Uploads.AllowedMediaTypes, ","), nil
	case "uploads.resolve_concurrency":
		return strconv.Itoa(c.Uploads.ResolveConcurrency), nil
	case "search.endpoint":
		return c.Search.Endpoint, nil
	case "search.api_key":
		return c.Search.APIKey, nil
	case "search.limit":
		return strconv.Itoa(c.Search.Limit), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if v := os.Getenv(apiURLEnvKey); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(dbPathEnvKey); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(blobURLEnvKey); v != "" {
		cfg.Blob.URL = v
	}
	if v := os.Getenv(publicBaseEnvKey); v != "" {
		cfg.Blob.PublicBaseURL = v
	}
	if v := os.Getenv(searchAPIKeyEnvKey); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv(searchEndpointEnvKey); v != "" {
		cfg.Search.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(logLevelEnvKey)); v != "" {
		cfg.LogLevel = v
	}
	if raw := strings.TrimSpace(os.Getenv(allowedTypesEnvKey)); raw != "" {
		cfg.Uploads.AllowedMediaTypes = splitCSV(raw)
	}

	cfg.normalize()

	return &cfg, nil
}

// DefaultBlobURL returns a fileblob URL rooted next to the database file.
func (c *Config) DefaultBlobURL() string {
	dir := filepath.Join(filepath.Dir(c.DBPath), DefaultBlobDirName)
	return "file://" + filepath.ToSlash(dir)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_upload_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.resolve_concurrency", "search.limit":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.allowed_media_types":
		return splitCSV(value), nil
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("log_level must be one of debug, info, warn, error")
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		c.OwnerID = DefaultOwnerID
	}
	c.Blob.KeyPrefix = strings.Trim(strings.TrimSpace(c.Blob.KeyPrefix), "/")
	if c.Blob.KeyPrefix == "" {
		c.Blob.KeyPrefix = DefaultKeyPrefix
	}
	c.Blob.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Blob.PublicBaseURL), "/")
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Uploads.ResolveConcurrency <= 0 {
		c.Uploads.ResolveConcurrency = DefaultResolveConcurrency
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = DefaultSearchLimit
	}
	c.Uploads.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Uploads.AllowedMediaTypes)
	if len(c.Uploads.AllowedMediaTypes) == 0 {
		c.Uploads.AllowedMediaTypes = append([]string(nil), DefaultAllowedMediaTypes...)
	}
}

func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
