// Package config builds the gateway's immutable process-wide configuration
// snapshot by layering, in increasing precedence: built-in defaults, a YAML
// file, environment variables (GOGATE_ prefix), and CLI flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment-variable override.
const EnvPrefix = "GOGATE_"

// Config is the resolved, immutable configuration the rest of the gateway
// reads from. Nothing after Load mutates it.
type Config struct {
	Port                int               `yaml:"port"`
	OllamaBaseURL       string            `yaml:"ollama_base_url"`
	DefaultModel        string            `yaml:"default_model"`
	ModelMap            map[string]string `yaml:"model_map"`
	StrictThinking      bool              `yaml:"strict_thinking"`
	SequentialToolCalls bool              `yaml:"sequential_tool_calls"`
	LogLevel            string            `yaml:"log_level"`
	LogFile             string            `yaml:"log_file"`
	RequestTimeout      time.Duration     `yaml:"request_timeout"`

	// RateLimitRPS bounds sustained requests per second per client IP across
	// the whole gateway. Zero (the default) disables rate limiting.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// Defaults returns the baseline configuration layer.
func Defaults() Config {
	return Config{
		Port:                3000,
		OllamaBaseURL:       "http://localhost:11434",
		DefaultModel:        "llama3.1",
		ModelMap:            map[string]string{},
		StrictThinking:      false,
		SequentialToolCalls: true,
		LogLevel:            "info",
		RequestTimeout:      2 * time.Minute,
		RateLimitRPS:        0,
	}
}

// LoadDotEnv loads a .env file from the working directory if present. A
// missing file is not an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// overrides is a layer contributed by the file or env loader: every field
// is a pointer so "not set by this layer" is distinguishable from "set to
// the zero value", including for the two booleans.
type overrides struct {
	Port                *int              `yaml:"port"`
	OllamaBaseURL       *string           `yaml:"ollama_base_url"`
	DefaultModel        *string           `yaml:"default_model"`
	ModelMap            map[string]string `yaml:"model_map"`
	StrictThinking      *bool             `yaml:"strict_thinking"`
	SequentialToolCalls *bool             `yaml:"sequential_tool_calls"`
	LogLevel            *string           `yaml:"log_level"`
	LogFile             *string           `yaml:"log_file"`
	RequestTimeout      *time.Duration    `yaml:"request_timeout"`
	RateLimitRPS        *float64          `yaml:"rate_limit_rps"`
}

// FileOverrides holds the layer a YAML config file contributes.
type FileOverrides = overrides

// LoadFile decodes a YAML config file at path into a FileOverrides layer.
func LoadFile(path string) (FileOverrides, error) {
	var out FileOverrides
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return out, nil
}

// EnvOverrides holds the layer environment variables contribute.
type EnvOverrides = overrides

// LoadEnv reads GOGATE_-prefixed environment variables into an EnvOverrides
// layer.
func LoadEnv() EnvOverrides {
	var out EnvOverrides
	if v, ok := os.LookupEnv(EnvPrefix + "PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			out.Port = &n
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "OLLAMA_BASE_URL"); ok {
		out.OllamaBaseURL = &v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "DEFAULT_MODEL"); ok {
		out.DefaultModel = &v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MODEL_MAP"); ok {
		out.ModelMap = parseModelMap(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "STRICT_THINKING"); ok {
		b := v == "true" || v == "1"
		out.StrictThinking = &b
	}
	if v, ok := os.LookupEnv(EnvPrefix + "SEQUENTIAL_TOOL_CALLS"); ok {
		b := v == "true" || v == "1"
		out.SequentialToolCalls = &b
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		out.LogLevel = &v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_FILE"); ok {
		out.LogFile = &v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "REQUEST_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			out.RequestTimeout = &d
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "RATE_LIMIT_RPS"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out.RateLimitRPS = &f
		}
	}
	return out
}

// parseModelMap parses "claude-3-opus=llama3.1:70b,claude-3-haiku=phi3" into
// a map.
func parseModelMap(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

// Flags is the CLI-flag layer, populated by kong in cmd/gateway. It carries
// pointers so "not passed" is distinguishable from "passed as zero value".
type Flags struct {
	Port           *int
	OllamaBaseURL  *string
	DefaultModel   *string
	StrictThinking *bool
	LogLevel       *string
	LogFile        *string
	RateLimitRPS   *float64
}

// Merge layers defaults < file < env < flags, in that order, and returns the
// final snapshot. A layer only overrides a field when it was explicitly
// populated (non-nil pointer, or non-empty ModelMap).
func Merge(base Config, file FileOverrides, env EnvOverrides, flags Flags) Config {
	out := base

	applyLayer(&out, file)
	applyLayer(&out, env)

	if flags.Port != nil {
		out.Port = *flags.Port
	}
	if flags.OllamaBaseURL != nil {
		out.OllamaBaseURL = *flags.OllamaBaseURL
	}
	if flags.DefaultModel != nil {
		out.DefaultModel = *flags.DefaultModel
	}
	if flags.StrictThinking != nil {
		out.StrictThinking = *flags.StrictThinking
	}
	if flags.LogLevel != nil {
		out.LogLevel = *flags.LogLevel
	}
	if flags.LogFile != nil {
		out.LogFile = *flags.LogFile
	}
	if flags.RateLimitRPS != nil {
		out.RateLimitRPS = *flags.RateLimitRPS
	}

	return out
}

func applyLayer(out *Config, layer overrides) {
	if layer.Port != nil {
		out.Port = *layer.Port
	}
	if layer.OllamaBaseURL != nil {
		out.OllamaBaseURL = *layer.OllamaBaseURL
	}
	if layer.DefaultModel != nil {
		out.DefaultModel = *layer.DefaultModel
	}
	if len(layer.ModelMap) > 0 {
		out.ModelMap = layer.ModelMap
	}
	if layer.StrictThinking != nil {
		out.StrictThinking = *layer.StrictThinking
	}
	if layer.SequentialToolCalls != nil {
		out.SequentialToolCalls = *layer.SequentialToolCalls
	}
	if layer.LogLevel != nil {
		out.LogLevel = *layer.LogLevel
	}
	if layer.LogFile != nil {
		out.LogFile = *layer.LogFile
	}
	if layer.RequestTimeout != nil {
		out.RequestTimeout = *layer.RequestTimeout
	}
	if layer.RateLimitRPS != nil {
		out.RateLimitRPS = *layer.RateLimitRPS
	}
}

// Load runs the full defaults -> file -> env -> flags pipeline.
func Load(filePath string, flags Flags) (Config, error) {
	base := Defaults()
	file, err := LoadFile(filePath)
	if err != nil {
		return Config{}, err
	}
	env := LoadEnv()
	return Merge(base, file, env, flags), nil
}
