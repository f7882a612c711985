package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

type ServiceConfig struct {
	BaseURL   string `json:"base_url"`
	TimeoutMS int    `json:"timeout_ms"`
}

type StorageConfig struct {
	BaseDir   string `json:"base_dir"`
	DBFile    string `json:"db_file"`
	ExportDir string `json:"export_dir"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// ServerConfig 本地服务端配置 / Settings for the local service process
type ServerConfig struct {
	Addr             string `json:"addr"`
	MetadataFile     string `json:"metadata_file"`
	Model            string `json:"model"`
	OpenAIBaseURL    string `json:"openai_base_url"`
	MaxContentTokens int    `json:"max_content_tokens"`
	RedditTimeoutMS  int    `json:"reddit_timeout_ms"`
}

type Config struct {
	Service ServiceConfig `json:"service"`
	Storage StorageConfig `json:"storage"`
	Log     LogConfig     `json:"log"`
	Server  ServerConfig  `json:"server"`
}

type fileConfig struct {
	Service *ServiceConfig `json:"service"`
	Storage *StorageConfig `json:"storage"`
	Log     *LogConfig     `json:"log"`
	Server  *ServerConfig  `json:"server"`
}

func Default() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:   DefaultServiceURL,
			TimeoutMS: DefaultTimeoutMS,
		},
		Storage: StorageConfig{
			BaseDir: "~/.ideaspark",
			DBFile:  "ideaspark.db",
		},
		Log: LogConfig{
			Level: "info",
			File:  "ideaspark.log",
		},
		Server: ServerConfig{
			Addr:             DefaultServerAddr,
			MetadataFile:     "subreddit_metadata.json",
			Model:            DefaultModel,
			MaxContentTokens: DefaultMaxContentTokens,
			RedditTimeoutMS:  DefaultRedditTimeoutMS,
		},
	}
}

// Load 依次合并：默认值 → 全局配置 → 项目配置 → 环境变量
// Load merges defaults, the global config, the project config and env overrides, in that order
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("IDEASPARK_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".ideaspark", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"ideaspark.config.json",
		".ideaspark/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(stripJSONComments(data), &fc); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	if fc.Service != nil {
		cfg.Service = mergeService(cfg.Service, *fc.Service)
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.Log != nil {
		if strings.TrimSpace(fc.Log.Level) != "" {
			cfg.Log.Level = fc.Log.Level
		}
		if strings.TrimSpace(fc.Log.File) != "" {
			cfg.Log.File = fc.Log.File
		}
	}
	if fc.Server != nil {
		cfg.Server = mergeServer(cfg.Server, *fc.Server)
	}
	return nil
}

func mergeService(base, override ServiceConfig) ServiceConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	return base
}

func mergeStorage(base, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	if strings.TrimSpace(override.DBFile) != "" {
		base.DBFile = override.DBFile
	}
	if strings.TrimSpace(override.ExportDir) != "" {
		base.ExportDir = override.ExportDir
	}
	return base
}

func mergeServer(base, override ServerConfig) ServerConfig {
	if strings.TrimSpace(override.Addr) != "" {
		base.Addr = override.Addr
	}
	if strings.TrimSpace(override.MetadataFile) != "" {
		base.MetadataFile = override.MetadataFile
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	if strings.TrimSpace(override.OpenAIBaseURL) != "" {
		base.OpenAIBaseURL = override.OpenAIBaseURL
	}
	if override.MaxContentTokens > 0 {
		base.MaxContentTokens = override.MaxContentTokens
	}
	if override.RedditTimeoutMS > 0 {
		base.RedditTimeoutMS = override.RedditTimeoutMS
	}
	return base
}

func normalize(cfg *Config) error {
	def := Default()
	cfg.Service.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Service.BaseURL), "/")
	if cfg.Service.BaseURL == "" {
		cfg.Service.BaseURL = def.Service.BaseURL
	}
	if cfg.Service.TimeoutMS <= 0 {
		cfg.Service.TimeoutMS = def.Service.TimeoutMS
	}

	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = def.Storage.BaseDir
	}
	baseDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	cfg.Storage.BaseDir = baseDir
	if strings.TrimSpace(cfg.Storage.DBFile) == "" {
		cfg.Storage.DBFile = def.Storage.DBFile
	}
	if cfg.Storage.ExportDir != "" {
		if cfg.Storage.ExportDir, err = expandPath(cfg.Storage.ExportDir); err != nil {
			return err
		}
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error", "disabled":
	default:
		cfg.Log.Level = def.Log.Level
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if strings.TrimSpace(cfg.Server.Model) == "" {
		cfg.Server.Model = def.Server.Model
	}
	if cfg.Server.MaxContentTokens <= 0 {
		cfg.Server.MaxContentTokens = def.Server.MaxContentTokens
	}
	if cfg.Server.RedditTimeoutMS <= 0 {
		cfg.Server.RedditTimeoutMS = def.Server.RedditTimeoutMS
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("IDEASPARK_SERVICE_URL")); v != "" {
		cfg.Service.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("IDEASPARK_TIMEOUT_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid IDEASPARK_TIMEOUT_MS: %q", v)
		}
		cfg.Service.TimeoutMS = n
	}
	if v := strings.TrimSpace(os.Getenv("IDEASPARK_DB_PATH")); v != "" {
		cfg.Storage.DBFile = v
	}
	if v := strings.TrimSpace(os.Getenv("IDEASPARK_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("IDEASPARK_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		cfg.Server.OpenAIBaseURL = v
	}
	return cfg, normalize(&cfg)
}

// DBPath 返回 SQLite 文件路径；db_file 为绝对路径时直接使用
// DBPath returns the SQLite file; an absolute db_file is used as is
func (c Config) DBPath() string {
	return c.underBase(c.Storage.DBFile)
}

// LogPath returns the log file path, or "" when file logging is off.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.Log.File) == "" {
		return ""
	}
	return c.underBase(c.Log.File)
}

func (c Config) MetadataPath() string {
	return c.underBase(c.Server.MetadataFile)
}

func (c Config) underBase(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "~") {
		if expanded, err := expandPath(p); err == nil {
			return expanded
		}
	}
	return filepath.Join(c.Storage.BaseDir, p)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
