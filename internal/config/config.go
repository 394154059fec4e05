package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobdigest/internal/model"
	"github.com/amishk599/jobdigest/internal/profile"
	"github.com/amishk599/jobdigest/internal/scheduler"
	"github.com/amishk599/jobdigest/internal/secrets"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "JOBDIGEST_CONFIG"

// DefaultPath is used when neither the flag nor EnvPath is set.
const DefaultPath = "config.yaml"

// Config is the root configuration for jobdigest.
type Config struct {
	Schedule        string
	Location        *time.Location
	TopN            int
	SoftDeadline    time.Duration // bounds scoring and enrichment of one run
	DeliveryTimeout time.Duration
	Freshness       time.Duration // postings older than this are dropped
	Concurrency     int
	LockFile        string

	Profile profile.Options
	Queries []model.Query
	Sources SourcesConfig
	LLM     LLMConfig
	Notify  NotifyConfig
}

// SourcesConfig enables the job search providers.
type SourcesConfig struct {
	JSearch    JSearchConfig
	Greenhouse []BoardConfig
	Ashby      []BoardConfig
	Lever      []BoardConfig
	MinDelay   time.Duration // minimum gap between requests to the same provider
}

// JSearchConfig configures the RapidAPI JSearch provider.
type JSearchConfig struct {
	Enabled         bool
	BaseURL         string
	APIKey          string
	NumPages        int
	EmploymentTypes string
	RadiusKm        int
	Widen           bool
}

// BoardConfig names one public company board.
type BoardConfig struct {
	Token   string `yaml:"token" validate:"required"`
	Company string `yaml:"company"`
}

// LLMConfig selects the text-generation provider.
type LLMConfig struct {
	Provider    string // "openai", "anthropic" or "gemini"
	Model       string
	BaseURL     string // empty only for gemini, which uses the SDK default
	APIKey      string
	Timeout     time.Duration // per attempt
	MaxRetries  int
	Concurrency int
	MinDelay    time.Duration // minimum gap between calls
}

// NotifyConfig lists the delivery channels. Every enabled channel receives
// the digest.
type NotifyConfig struct {
	Email EmailConfig
	Gmail GmailConfig
	Slack SlackConfig
	Log   bool
}

// EmailConfig is an SMTP relay.
type EmailConfig struct {
	Enabled           bool
	Host              string
	Port              int
	Username          string
	Password          string
	From              string
	To                []string
	AttachSpreadsheet bool
}

// GmailConfig sends through the Gmail API with an OAuth token.
type GmailConfig struct {
	Enabled           bool
	CredentialsFile   string
	TokenFile         string
	From              string
	To                []string
	AttachSpreadsheet bool
}

// SlackConfig is an incoming webhook.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
}

// Defaults.
const (
	defaultTimezone        = "UTC"
	defaultTopN            = 10
	defaultSoftDeadline    = 5 * time.Minute
	defaultDeliveryTimeout = time.Minute
	defaultFreshness       = 24 * time.Hour
	defaultConcurrency     = 4
	defaultQueryLimit      = 10
	defaultSourceDelay     = time.Second
	defaultLLMTimeout      = 30 * time.Second
	defaultLLMRetries      = 1
	defaultSMTPPort        = 587
)

var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-haiku-latest",
	"gemini":    "gemini-2.0-flash",
}

// Gemini has no entry: the genai SDK picks its own endpoint.
var defaultBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"anthropic": "https://api.anthropic.com/v1",
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	Schedule        string     `yaml:"schedule"`
	Timezone        string     `yaml:"timezone"`
	TopN            int        `yaml:"top_n" validate:"gte=0,lte=50"`
	SoftDeadline    string     `yaml:"soft_deadline"`
	DeliveryTimeout string     `yaml:"delivery_timeout"`
	Freshness       string     `yaml:"freshness"`
	Concurrency     int        `yaml:"concurrency" validate:"gte=0,lte=32"`
	LockFile        string     `yaml:"lock_file"`
	Profile         rawProfile `yaml:"profile"`
	Queries         []rawQuery `yaml:"queries" validate:"required,min=1,dive"`
	Sources         rawSources `yaml:"sources"`
	LLM             rawLLM     `yaml:"llm"`
	Notify          rawNotify  `yaml:"notify"`
}

type rawProfile struct {
	Resume           string   `yaml:"resume" validate:"required"`
	PreferencesFile  string   `yaml:"preferences_file"`
	Preferences      string   `yaml:"preferences"`
	DesiredRoles     []string `yaml:"desired_roles"`
	Locations        []string `yaml:"locations"`
	SalaryFloor      float64  `yaml:"salary_floor" validate:"gte=0"`
	ExcludeKeywords  []string `yaml:"exclude_keywords"`
	ExcludeLocations []string `yaml:"exclude_locations"`
	S3               rawS3    `yaml:"s3"`
}

type rawS3 struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

type rawQuery struct {
	Keywords string `yaml:"keywords" validate:"required"`
	Location string `yaml:"location"`
	MaxAge   string `yaml:"max_age"`
	Limit    int    `yaml:"limit" validate:"gte=0,lte=100"`
}

type rawSources struct {
	JSearch    rawJSearch    `yaml:"jsearch"`
	Greenhouse []BoardConfig `yaml:"greenhouse" validate:"dive"`
	Ashby      []BoardConfig `yaml:"ashby" validate:"dive"`
	Lever      []BoardConfig `yaml:"lever" validate:"dive"`
	MinDelay   string        `yaml:"min_delay"`
}

type rawJSearch struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"base_url" validate:"omitempty,url"`
	APIKey          string `yaml:"api_key"`
	NumPages        int    `yaml:"num_pages" validate:"gte=0,lte=10"`
	EmploymentTypes string `yaml:"employment_types"`
	RadiusKm        int    `yaml:"radius_km" validate:"gte=0"`
	Widen           *bool  `yaml:"widen"`
}

type rawLLM struct {
	Provider    string `yaml:"provider" validate:"required,oneof=openai anthropic gemini"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string `yaml:"api_key"`
	Timeout     string `yaml:"timeout"`
	MaxRetries  *int   `yaml:"max_retries" validate:"omitempty,gte=0,lte=3"`
	Concurrency int    `yaml:"concurrency" validate:"gte=0,lte=32"`
	MinDelay    string `yaml:"min_delay"`
}

type rawNotify struct {
	Email rawEmail `yaml:"email"`
	Gmail rawGmail `yaml:"gmail"`
	Slack rawSlack `yaml:"slack"`
	Log   bool     `yaml:"log"`
}

type rawEmail struct {
	Enabled           bool     `yaml:"enabled"`
	Host              string   `yaml:"host" validate:"required_if=Enabled true"`
	Port              int      `yaml:"port" validate:"gte=0,lte=65535"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	From              string   `yaml:"from" validate:"required_if=Enabled true,omitempty,email"`
	To                []string `yaml:"to" validate:"required_if=Enabled true,dive,email"`
	AttachSpreadsheet bool     `yaml:"attach_spreadsheet"`
}

type rawGmail struct {
	Enabled           bool     `yaml:"enabled"`
	CredentialsFile   string   `yaml:"credentials_file" validate:"required_if=Enabled true"`
	TokenFile         string   `yaml:"token_file" validate:"required_if=Enabled true"`
	From              string   `yaml:"from" validate:"omitempty,email"`
	To                []string `yaml:"to" validate:"required_if=Enabled true,dive,email"`
	AttachSpreadsheet bool     `yaml:"attach_spreadsheet"`
}

type rawSlack struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

var validate = validator.New()

// ResolvePath picks the config file: the flag value, then EnvPath, then
// DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. A .env file next to the working directory is loaded
// first so ${VAR} references can point at it; variables already set in the
// environment win. Empty secrets fall back to the OS keychain.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: load .env: %w", model.ErrConfig, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %w", model.ErrConfig, err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", model.ErrConfig, err)
	}
	if err := validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, validationError(err))
	}

	cfg, err := build(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	if err := resolveSecrets(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	if err := check(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	return cfg, nil
}

func build(raw rawConfig) (*Config, error) {
	var err error
	cfg := &Config{
		Schedule:    orDefault(raw.Schedule, scheduler.DefaultSpec),
		TopN:        orDefaultInt(raw.TopN, defaultTopN),
		Concurrency: orDefaultInt(raw.Concurrency, defaultConcurrency),
		LockFile:    raw.LockFile,
	}

	if cfg.Location, err = time.LoadLocation(orDefault(raw.Timezone, defaultTimezone)); err != nil {
		return nil, fmt.Errorf("timezone %q: %w", raw.Timezone, err)
	}
	if cfg.SoftDeadline, err = parseDuration("soft_deadline", raw.SoftDeadline, defaultSoftDeadline); err != nil {
		return nil, err
	}
	if cfg.DeliveryTimeout, err = parseDuration("delivery_timeout", raw.DeliveryTimeout, defaultDeliveryTimeout); err != nil {
		return nil, err
	}
	if cfg.Freshness, err = parseDuration("freshness", raw.Freshness, defaultFreshness); err != nil {
		return nil, err
	}

	p := raw.Profile
	cfg.Profile = profile.Options{
		Resume:           p.Resume,
		PreferencesFile:  p.PreferencesFile,
		Preferences:      p.Preferences,
		DesiredRoles:     p.DesiredRoles,
		Locations:        p.Locations,
		SalaryFloor:      p.SalaryFloor,
		ExcludeKeywords:  p.ExcludeKeywords,
		ExcludeLocations: p.ExcludeLocations,
		S3: profile.S3Config{
			Region:          p.S3.Region,
			Endpoint:        p.S3.Endpoint,
			AccessKeyID:     p.S3.AccessKeyID,
			SecretAccessKey: p.S3.SecretAccessKey,
			UsePathStyle:    p.S3.UsePathStyle,
		},
	}

	for i, q := range raw.Queries {
		maxAge, err := parseDuration(fmt.Sprintf("queries[%d].max_age", i), q.MaxAge, cfg.Freshness)
		if err != nil {
			return nil, err
		}
		cfg.Queries = append(cfg.Queries, model.Query{
			Keywords: strings.TrimSpace(q.Keywords),
			Location: strings.TrimSpace(q.Location),
			MaxAge:   maxAge,
			Limit:    orDefaultInt(q.Limit, defaultQueryLimit),
		})
	}

	js := raw.Sources.JSearch
	cfg.Sources = SourcesConfig{
		JSearch: JSearchConfig{
			Enabled:         js.Enabled,
			BaseURL:         js.BaseURL,
			APIKey:          js.APIKey,
			NumPages:        orDefaultInt(js.NumPages, 1),
			EmploymentTypes: js.EmploymentTypes,
			RadiusKm:        js.RadiusKm,
			Widen:           js.Widen == nil || *js.Widen,
		},
		Greenhouse: raw.Sources.Greenhouse,
		Ashby:      raw.Sources.Ashby,
		Lever:      raw.Sources.Lever,
	}
	if cfg.Sources.MinDelay, err = parseDuration("sources.min_delay", raw.Sources.MinDelay, defaultSourceDelay); err != nil {
		return nil, err
	}

	l := raw.LLM
	cfg.LLM = LLMConfig{
		Provider:    l.Provider,
		Model:       orDefault(l.Model, defaultModels[l.Provider]),
		BaseURL:     orDefault(l.BaseURL, defaultBaseURLs[l.Provider]),
		APIKey:      l.APIKey,
		MaxRetries:  defaultLLMRetries,
		Concurrency: orDefaultInt(l.Concurrency, cfg.Concurrency),
	}
	if l.MaxRetries != nil {
		cfg.LLM.MaxRetries = *l.MaxRetries
	}
	if cfg.LLM.Timeout, err = parseDuration("llm.timeout", l.Timeout, defaultLLMTimeout); err != nil {
		return nil, err
	}
	if cfg.LLM.MinDelay, err = parseDuration("llm.min_delay", l.MinDelay, 0); err != nil {
		return nil, err
	}

	n := raw.Notify
	cfg.Notify = NotifyConfig{
		Email: EmailConfig{
			Enabled:           n.Email.Enabled,
			Host:              n.Email.Host,
			Port:              orDefaultInt(n.Email.Port, defaultSMTPPort),
			Username:          orDefault(n.Email.Username, n.Email.From),
			Password:          n.Email.Password,
			From:              n.Email.From,
			To:                n.Email.To,
			AttachSpreadsheet: n.Email.AttachSpreadsheet,
		},
		Gmail: GmailConfig{
			Enabled:           n.Gmail.Enabled,
			CredentialsFile:   n.Gmail.CredentialsFile,
			TokenFile:         n.Gmail.TokenFile,
			From:              n.Gmail.From,
			To:                n.Gmail.To,
			AttachSpreadsheet: n.Gmail.AttachSpreadsheet,
		},
		Slack: SlackConfig{Enabled: n.Slack.Enabled, WebhookURL: n.Slack.WebhookURL},
		Log:   n.Log,
	}
	return cfg, nil
}

// resolveSecrets fills empty secrets from the OS keychain, only for the
// features that are enabled.
func resolveSecrets(cfg *Config) error {
	var err error
	if cfg.LLM.APIKey, err = secrets.Resolve(cfg.LLM.APIKey, secrets.LLMAccount(cfg.LLM.Provider)); err != nil {
		return err
	}
	if cfg.Sources.JSearch.Enabled {
		if cfg.Sources.JSearch.APIKey, err = secrets.Resolve(cfg.Sources.JSearch.APIKey, secrets.JSearchAccount); err != nil {
			return err
		}
	}
	if e := &cfg.Notify.Email; e.Enabled && e.Username != "" {
		if e.Password, err = secrets.Resolve(e.Password, secrets.SMTPAccount(e.Username, e.Host)); err != nil {
			return err
		}
	}
	if s := &cfg.Notify.Slack; s.Enabled {
		if s.WebhookURL, err = secrets.Resolve(s.WebhookURL, secrets.SlackAccount); err != nil {
			return err
		}
	}
	if s3 := &cfg.Profile.S3; s3.AccessKeyID != "" {
		if s3.SecretAccessKey, err = secrets.Resolve(s3.SecretAccessKey, secrets.S3Account); err != nil {
			return err
		}
	}
	return nil
}

// check enforces rules that span sections or depend on resolved secrets.
func check(cfg *Config) error {
	if cfg.SoftDeadline <= 0 {
		return fmt.Errorf("soft_deadline must be positive, got %v", cfg.SoftDeadline)
	}
	if cfg.Freshness < time.Hour || cfg.Freshness > 30*24*time.Hour {
		return fmt.Errorf("freshness must be between 1h and 720h, got %v", cfg.Freshness)
	}
	src := cfg.Sources
	if !src.JSearch.Enabled && len(src.Greenhouse)+len(src.Ashby)+len(src.Lever) == 0 {
		return errors.New("at least one source must be configured (sources.jsearch, greenhouse, ashby or lever)")
	}
	if cfg.Sources.JSearch.Enabled && cfg.Sources.JSearch.APIKey == "" {
		return errors.New("sources.jsearch.api_key is required (config, env or keychain)")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for provider %q (config, env or keychain)", cfg.LLM.Provider)
	}

	if s := cfg.Notify.Slack; s.Enabled {
		if s.WebhookURL == "" {
			return errors.New("notify.slack.webhook_url is required when slack is enabled")
		}
		if !strings.HasPrefix(s.WebhookURL, "https://hooks.slack.com/") {
			return errors.New("notify.slack.webhook_url must start with https://hooks.slack.com/")
		}
	}
	if e := cfg.Notify.Email; e.Enabled && e.Username != "" && e.Password == "" {
		return errors.New("notify.email.password is required (config, env or keychain)")
	}
	return nil
}

// Notifiers reports whether any delivery channel is enabled.
func (c *Config) Notifiers() bool {
	n := c.Notify
	return n.Email.Enabled || n.Gmail.Enabled || n.Slack.Enabled || n.Log
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fieldPath(fe.Namespace()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
