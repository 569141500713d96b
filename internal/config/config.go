package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/tbgers/tbgclient/pkg/types"
)

// Default forum endpoints.
const (
	DefaultForumURL = "https://tbgforums.com/forums/index.php"
	DefaultChatURL  = "https://tbgforums.com/forums/chat/"
)

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (XDG config dir)
// 2. Project config (directory)
// 3. TBG_CONFIG file
// 4. TBG_CONFIG_CONTENT inline JSON
// 5. Environment variables (after directory/.env)
func Load(directory string) (*types.Config, error) {
	config := &types.Config{}

	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if loaded[absPath] {
			return nil
		}
		err = loadConfigFile(path, config, baseDir)
		if err == nil {
			loaded[absPath] = true
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}

	var candidates [][2]string

	// 1. Global config
	globalPath := GetPaths().Config
	for _, name := range []string{"config.json", "config.jsonc", "config.yaml", "config.yml"} {
		candidates = append(candidates, [2]string{filepath.Join(globalPath, name), globalPath})
	}

	// 2. Project config
	if directory != "" {
		for _, name := range []string{"tbgclient.json", "tbgclient.jsonc", "tbgclient.yaml", "tbgclient.yml"} {
			candidates = append(candidates, [2]string{filepath.Join(directory, name), directory})
		}
	}

	// 3. TBG_CONFIG file override
	if configPath := os.Getenv("TBG_CONFIG"); configPath != "" {
		candidates = append(candidates, [2]string{configPath, filepath.Dir(configPath)})
	}

	for _, c := range candidates {
		if err := loadOnce(c[0], c[1]); err != nil {
			return nil, err
		}
	}

	// 4. TBG_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("TBG_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal(jsonc.ToJSON([]byte(configContent)), &inlineConfig); err != nil {
			return nil, fmt.Errorf("TBG_CONFIG_CONTENT: %w", err)
		}
		mergeConfig(config, &inlineConfig)
	}

	// 5. Environment variables (highest priority). A .env file never
	// overrides variables that are already set.
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}
	applyEnvOverrides(config)

	applyDefaults(config)
	return config, nil
}

// loadConfigFile loads a single JSON, JSONC or YAML file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = interpolate(data, baseDir)

	var fileConfig types.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &fileConfig); err != nil {
			return err
		}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}

		// Escape for a JSON string; trailing newlines are dropped so secrets
		// kept in files behave like inline values.
		escaped := strings.TrimRight(string(content), "\r\n")
		escaped = strings.ReplaceAll(escaped, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")
		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.ForumURL != "" {
		target.ForumURL = source.ForumURL
	}
	if source.ChatURL != "" {
		target.ChatURL = source.ChatURL
	}
	if source.Username != "" {
		target.Username = source.Username
	}
	if source.Password != "" {
		target.Password = source.Password
	}
	if source.UserAgent != "" {
		target.UserAgent = source.UserAgent
	}
	if source.Timeout > 0 {
		target.Timeout = source.Timeout
	}
	if source.RaiseOnErrorCode != nil {
		target.RaiseOnErrorCode = source.RaiseOnErrorCode
	}

	if source.Retry != nil {
		if target.Retry == nil {
			target.Retry = &types.RetryConfig{}
		}
		if source.Retry.MaxRetries != 0 {
			target.Retry.MaxRetries = source.Retry.MaxRetries
		}
		if source.Retry.InitialInterval != "" {
			target.Retry.InitialInterval = source.Retry.InitialInterval
		}
		if source.Retry.MaxInterval != "" {
			target.Retry.MaxInterval = source.Retry.MaxInterval
		}
	}

	if source.Log != nil {
		target.Log = source.Log
	}
	if source.Chat != nil {
		target.Chat = source.Chat
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if v := os.Getenv("TBG_FORUM_URL"); v != "" {
		config.ForumURL = v
	}
	if v := os.Getenv("TBG_CHAT_URL"); v != "" {
		config.ChatURL = v
	}
	if v := os.Getenv("TBG_USERNAME"); v != "" {
		config.Username = v
	}
	if v := os.Getenv("TBG_PASSWORD"); v != "" {
		config.Password = v
	}
	if v := os.Getenv("TBG_USER_AGENT"); v != "" {
		config.UserAgent = v
	}
	if v := os.Getenv("TBG_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Timeout = n
		}
	}
	if v := os.Getenv("TBG_LOG_LEVEL"); v != "" {
		if config.Log == nil {
			config.Log = &types.LogConfig{}
		}
		config.Log.Level = v
	}
}

func applyDefaults(config *types.Config) {
	if config.ForumURL == "" {
		config.ForumURL = DefaultForumURL
	}
	if config.ChatURL == "" {
		config.ChatURL = DefaultChatURL
	}
}

// Save saves the configuration to a file. Passwords are never written.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out := *config
	out.Password = ""

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&out)
	default:
		data, err = json.MarshalIndent(&out, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
