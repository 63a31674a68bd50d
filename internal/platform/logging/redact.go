package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// secretFields are attribute keys and struct field names whose values never
// reach a sink. masq matches names exactly, so Go field spellings are listed
// next to the snake_case keys used in log calls.
var secretFields = []string{
	"Authorization", "authorization",
	"Token", "token", "access_token", "refresh_token",
	"Password", "password",
	"APIKey", "api_key",
	"Cookie", "cookie",
}

// secretPrefixes redact any key starting with them, e.g. secret_config.
var secretPrefixes = []string{"secret", "Secret", "private", "Private"}

// secretValues catch credentials logged under an innocent key, such as a
// header map dumped while debugging the remote.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),
}

// DefaultRedactOptions returns the masq options applied to every sink.
// Quotes are never secret; the sync token and auth headers sent to the
// remote are.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(secretFields)+len(secretPrefixes)+len(secretValues))

	for _, name := range secretFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	for _, prefix := range secretPrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}

	for _, re := range secretValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr that redacts DefaultRedactOptions
// plus any extra options.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
