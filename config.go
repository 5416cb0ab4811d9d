package wsprofile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Listen struct {
	URL string `json:"URL" yaml:"url"`
}

// Remote is the broker REST API the remote collaborators talk to.
type Remote struct {
	URL     string `json:"URL" yaml:"url"`
	Token   string `json:"Token" yaml:"token"`
	Timeout string `json:"Timeout" yaml:"timeout"`
}

type config struct {
	HTTP         Listen `json:"HTTP" yaml:"http"`
	API          Remote `json:"API" yaml:"api"`
	DefaultHost  string `json:"DefaultHost" yaml:"defaultHost"`
	Version      string `json:"Version" yaml:"version"`
	RederiveURL  string `json:"RederiveURL" yaml:"rederiveURL"`
	OriginSecure bool   `json:"OriginSecure" yaml:"originSecure"`
	LogLevel     string `json:"LogLevel" yaml:"logLevel"`
}

var CONFIG = &config{
	HTTP:        Listen{URL: "http://127.0.0.1:8080"},
	API:         Remote{Timeout: "5s"},
	DefaultHost: "localhost",
	Version:     "5",
	RederiveURL: "auto",
	LogLevel:    "info",
}

// envFile is read by LoadConfig when it exists.
var envFile = ".env"

// LoadConfig fills CONFIG from path, then from .env and the WSPROFILE_*
// environment variables. Files ending in .yaml or .yml are read as YAML,
// anything else as JSON. An empty path only applies the environment.
func LoadConfig(path string) error {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(b, CONFIG)
		default:
			err = json.Unmarshal(b, CONFIG)
		}
		if err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return CONFIG.fromEnv()
}

func (c *config) fromEnv() error {
	for env, dst := range map[string]*string{
		"WSPROFILE_HTTP_URL":     &c.HTTP.URL,
		"WSPROFILE_API_URL":      &c.API.URL,
		"WSPROFILE_API_TOKEN":    &c.API.Token,
		"WSPROFILE_API_TIMEOUT":  &c.API.Timeout,
		"WSPROFILE_DEFAULT_HOST": &c.DefaultHost,
		"WSPROFILE_VERSION":      &c.Version,
		"WSPROFILE_REDERIVE_URL": &c.RederiveURL,
		"WSPROFILE_LOG_LEVEL":    &c.LogLevel,
	} {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("WSPROFILE_ORIGIN_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WSPROFILE_ORIGIN_SECURE=%q: %w", v, err)
		}
		c.OriginSecure = b
	}
	return nil
}

// Logger builds the process logger at the configured level.
func (c *config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// Options translates the configuration into wizard options.
func (c *config) Options(log zerolog.Logger) ([]Option, error) {
	rederive, err := ParseRederive(c.RederiveURL)
	if err != nil {
		return nil, err
	}
	version := MQTT5
	if c.Version != "" {
		if version, err = ParseVersion(c.Version); err != nil {
			return nil, err
		}
	}
	opts := []Option{
		Logger(log),
		RederiveURL(rederive),
		Version(uint8(version)),
		OriginSecure(c.OriginSecure),
	}
	if c.DefaultHost != "" {
		opts = append(opts, Host(c.DefaultHost))
	}
	return opts, nil
}
