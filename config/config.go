// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package config loads and saves the client's settings.  Settings
// live in a small YAML file, by default in a per-user location chosen
// by DefaultPath(), and the API key can be overridden from the
// environment:
//
//     key_id: abcdefgh
//     password: secret
//     base_url: https://cloud.gate.ac.uk/api/
//     gzip_threshold: 4096
//     max_redirects: 5
//     timeout: 30s
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// Environment variables that override the configuration file.
const (
	EnvKeyID    = "GATE_CLOUD_API_KEY_ID"
	EnvPassword = "GATE_CLOUD_API_KEY_PASSWORD"
	EnvBaseURL  = "GATE_CLOUD_BASE_URL"
)

// Config holds the client settings.
type Config struct {
	// KeyID and Password are the API key.  If KeyID is empty the
	// client makes anonymous calls.
	KeyID    string `mapstructure:"key_id" yaml:"key_id,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// BaseURL is the API root; empty means the public service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`

	// GzipThreshold is the document size above which online API
	// calls are compressed.  Zero means the default; negative
	// turns compression off.
	GzipThreshold int `mapstructure:"gzip_threshold" yaml:"gzip_threshold,omitempty"`

	// MaxRedirects limits how many redirects one call follows.
	// Zero means the default.
	MaxRedirects int `mapstructure:"max_redirects" yaml:"max_redirects,omitempty"`

	// Timeout bounds the wait for each response's headers, not
	// the time spent reading its body; zero means no limit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// DefaultPath returns the usual location of the configuration file
// for the current user.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "GATE Cloud", "config.yaml")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "GATE Cloud", "config.yaml")
		}
		return filepath.Join(home, "GATE Cloud", "config.yaml")
	default:
		return filepath.Join(home, ".gate-cloud-client.yaml")
	}
}

// Load reads the configuration file at path and applies environment
// overrides.  A missing file yields an empty configuration, not an
// error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	bytes, err := ioutil.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		var raw map[string]interface{}
		if err = yaml.Unmarshal(bytes, &raw); err != nil {
			return nil, err
		}
		if err = decode(cfg, raw); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// decode copies a YAML map into cfg.  Numbers written as strings and
// durations like "30s" are accepted.
func decode(cfg *Config, raw map[string]interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err == nil {
		err = decoder.Decode(raw)
	}
	return err
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvKeyID); v != "" {
		c.KeyID = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Password = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
}

// Save writes cfg to path, replacing any existing file only once the
// new one is completely written.  The file is readable only by its
// owner since it holds the API password.
func Save(path string, cfg *Config) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	partial := path + ".new"
	if err = ioutil.WriteFile(partial, bytes, 0600); err != nil {
		return err
	}
	if err = os.Rename(partial, path); err != nil {
		_ = os.Remove(partial)
		return err
	}
	return nil
}

// Client creates a transport from the configuration.  opts are
// applied after the configured settings.
func (c *Config) Client(opts ...restclient.Option) (*restclient.Client, error) {
	base := c.BaseURL
	if base == "" {
		base = restclient.DefaultBaseURL
	}
	var creds *restclient.Credentials
	if c.KeyID != "" {
		creds = &restclient.Credentials{KeyID: c.KeyID, Password: c.Password}
	}
	var all []restclient.Option
	if c.MaxRedirects > 0 {
		all = append(all, restclient.WithMaxRedirects(c.MaxRedirects))
	}
	if c.Timeout > 0 {
		all = append(all, restclient.WithTimeout(c.Timeout))
	}
	all = append(all, opts...)
	return restclient.New(base, creds, all...)
}
