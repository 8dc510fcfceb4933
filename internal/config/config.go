package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrEndpointRequired indicates that no grading backend is configured while the mock is disabled.
var ErrEndpointRequired = errors.New("evaluation endpoint must be provided unless the mock submitter is enabled")

// Config holds runtime configuration values for the viewer service and CLI.
type Config struct {
	AppName             string        `validate:"required"`
	AppEnv              string        `validate:"required"`
	AppPort             string        `validate:"required"`
	EvaluationEndpoint  string        `validate:"omitempty,url"`
	EvaluationTimeout   time.Duration `validate:"gt=0"`
	EvaluationMock      bool
	EvaluationMockDelay time.Duration `validate:"gte=0"`
	EvaluationValidate  bool
	UploadMaxBytes      int64         `validate:"gt=0"`
	RenderCurrency      string        `validate:"required"`
	JobsTTL             time.Duration `validate:"gt=0"`
	NATSURL             string        `validate:"omitempty,url"`
	NATSSubject         string        `validate:"required"`
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Validate checks field formats and that a grading backend is reachable.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.EvaluationMock && strings.TrimSpace(c.EvaluationEndpoint) == "" {
		return ErrEndpointRequired
	}
	return nil
}

// Load reads configuration values from environment variables and optional .env file
// and validates them.
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read parses configuration without enforcing the endpoint rule, so callers can
// apply overrides such as command line flags before validating.
func Read() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EVALMATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EvalMate Viewer")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("evaluation.endpoint", "")
	v.SetDefault("evaluation.timeout", "120s")
	v.SetDefault("evaluation.mock", false)
	v.SetDefault("evaluation.mock_delay", "2s")
	v.SetDefault("evaluation.validate", true)
	v.SetDefault("upload.max_mb", 20)
	v.SetDefault("render.currency", "$")
	v.SetDefault("jobs.ttl", "15m")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "evalmate.evaluations")

	timeout, err := duration(v, "evaluation.timeout")
	if err != nil {
		return Config{}, err
	}
	mockDelay, err := duration(v, "evaluation.mock_delay")
	if err != nil {
		return Config{}, err
	}
	jobsTTL, err := duration(v, "jobs.ttl")
	if err != nil {
		return Config{}, err
	}

	maxMB := v.GetInt64("upload.max_mb")
	if maxMB <= 0 {
		maxMB = 20
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		EvaluationEndpoint:  strings.TrimSpace(v.GetString("evaluation.endpoint")),
		EvaluationTimeout:   timeout,
		EvaluationMock:      v.GetBool("evaluation.mock"),
		EvaluationMockDelay: mockDelay,
		EvaluationValidate:  v.GetBool("evaluation.validate"),
		UploadMaxBytes:      maxMB * 1024 * 1024,
		RenderCurrency:      v.GetString("render.currency"),
		JobsTTL:             jobsTTL,
		NATSURL:             strings.TrimSpace(v.GetString("nats.url")),
		NATSSubject:         strings.TrimSpace(v.GetString("nats.subject")),
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
