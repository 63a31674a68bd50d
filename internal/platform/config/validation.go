package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Tags reported by the cross-field rules below.
const (
	tagCoversClientTimeout = "covers_client_timeout"
	tagCoversInitial       = "covers_initial_interval"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Name fields by their koanf key so errors read like the YAML files.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	v.RegisterStructValidation(validateConfig, Config{})
	v.RegisterStructValidation(validateRetry, RetryConfig{})

	return v
}

// validateConfig holds rules that span sections.
func validateConfig(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}

	// A cycle that can outlive the interval would overlap the next tick.
	if cfg.Sync.Enabled && cfg.Client.Timeout > 0 && cfg.Sync.Interval < cfg.Client.Timeout {
		sl.ReportError(cfg.Sync.Interval, "sync.interval", "Interval", tagCoversClientTimeout, cfg.Client.Timeout.String())
	}
}

func validateRetry(sl validator.StructLevel) {
	retry, ok := sl.Current().Interface().(RetryConfig)
	if !ok {
		return
	}

	if retry.MaxInterval > 0 && retry.MaxInterval < retry.InitialInterval {
		sl.ReportError(retry.MaxInterval, "max_interval", "MaxInterval", tagCoversInitial, retry.InitialInterval.String())
	}
}

// FieldError is one invalid setting.
type FieldError struct {
	// Key is the dotted config key, e.g. "storage.driver".
	Key     string
	Message string
}

// ValidationError lists every invalid setting found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		lines = append(lines, f.Key+" "+f.Message)
	}

	return "config validation failed:\n  " + strings.Join(lines, "\n  ")
}

// Has reports whether key is among the invalid settings.
func (e *ValidationError) Has(key string) bool {
	for _, f := range e.Fields {
		if f.Key == key {
			return true
		}
	}

	return false
}

// Validate checks every section and reports all invalid settings at once
// as a *ValidationError. No command runs with an invalid config.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Key:     configKey(fe.Namespace()),
			Message: describe(fe),
		})
	}

	return out
}

// configKey drops the root struct name: "Config.client.retry.max_attempts"
// becomes "client.retry.max_attempts".
func configKey(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return key
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + condition(fe.Param())
	case "required_unless":
		return "is required unless " + condition(fe.Param())
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "url":
		return "must be a valid URL"
	case tagCoversClientTimeout:
		return "must be at least client.timeout (" + fe.Param() + ")"
	case tagCoversInitial:
		return "must be at least client.retry.initial_interval (" + fe.Param() + ")"
	default:
		return "failed validation: " + fe.Tag()
	}
}

// condition renders a validator param such as "Driver memory" as
// "driver is memory".
func condition(param string) string {
	field, value, found := strings.Cut(param, " ")
	if !found {
		return param
	}

	return strings.ToLower(field) + " is " + value
}
