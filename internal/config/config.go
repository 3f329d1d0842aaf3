package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sharpedavid/idlinkreset/internal/platform/env"
)

const DefaultClientSecretEnv = "IDLINKRESET_CLIENT_SECRET"

// Config is the realized run configuration: defaults, then the YAML file,
// then IDLINKRESET_* environment overrides. The client secret is never read
// from the file; client_secret_env names the variable that holds it.
type Config struct {
	ServerURL        string `yaml:"server_url"`
	ClientRealm      string `yaml:"client_realm"`
	ClientID         string `yaml:"client_id"`
	ClientSecretEnv  string `yaml:"client_secret_env"`
	IDPRealm         string `yaml:"idp_realm"`
	ApplicationRealm string `yaml:"application_realm"`
	UserMax          int    `yaml:"user_max"`
	DryRun           *bool  `yaml:"dry_run"`

	ClientSecret string        `yaml:"-"`
	HTTPTimeout  time.Duration `yaml:"-"`
}

func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.ClientSecretEnv) == "" {
		cfg.ClientSecretEnv = DefaultClientSecretEnv
	}
	cfg.ClientSecret = os.Getenv(cfg.ClientSecretEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ServerURL = env.String("IDLINKRESET_SERVER_URL", c.ServerURL)
	c.ClientRealm = env.String("IDLINKRESET_CLIENT_REALM", c.ClientRealm)
	c.ClientID = env.String("IDLINKRESET_CLIENT_ID", c.ClientID)
	c.ClientSecretEnv = env.String("IDLINKRESET_CLIENT_SECRET_ENV", c.ClientSecretEnv)
	c.IDPRealm = env.String("IDLINKRESET_IDP_REALM", c.IDPRealm)
	c.ApplicationRealm = env.String("IDLINKRESET_APPLICATION_REALM", c.ApplicationRealm)

	userMax, err := env.Int("IDLINKRESET_USER_MAX", c.UserMax)
	if err != nil {
		return err
	}
	c.UserMax = userMax

	if raw, ok := os.LookupEnv("IDLINKRESET_DRY_RUN"); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse IDLINKRESET_DRY_RUN: %w", err)
		}
		c.DryRun = &b
	}

	timeout, err := env.Duration("IDLINKRESET_HTTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return err
	}
	c.HTTPTimeout = timeout

	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("server_url is required (set server_url or IDLINKRESET_SERVER_URL)")
	}
	if strings.TrimSpace(c.ClientRealm) == "" {
		return errors.New("client_realm is required (set client_realm or IDLINKRESET_CLIENT_REALM)")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("client_id is required (set client_id or IDLINKRESET_CLIENT_ID)")
	}
	if strings.TrimSpace(c.IDPRealm) == "" {
		return errors.New("idp_realm is required (set idp_realm or IDLINKRESET_IDP_REALM)")
	}
	if strings.TrimSpace(c.ApplicationRealm) == "" {
		return errors.New("application_realm is required (set application_realm or IDLINKRESET_APPLICATION_REALM)")
	}
	if c.UserMax <= 0 {
		return errors.New("user_max must be a positive integer (set user_max or IDLINKRESET_USER_MAX)")
	}
	if c.DryRun == nil {
		return errors.New("dry_run is required (set dry_run or IDLINKRESET_DRY_RUN)")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is empty (set %s)", c.ClientSecretEnv)
	}
	return nil
}
