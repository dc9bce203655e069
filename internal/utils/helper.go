package utils

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/joho/godotenv"
)

const masked = "***MASKED***"

type maskRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Engine credentials that can surface in errors: query-string keys (Gemini),
// bearer tokens (OpenAI), subscription keys (Azure), x-api-key (Anthropic).
var maskRules = []maskRule{
	{regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`), `${1}${2}=` + masked},
	{regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`), `Bearer ` + masked},
	{regexp.MustCompile(`Ocp-Apim-Subscription-Key:\s*([^\s]+)`), `Ocp-Apim-Subscription-Key: ` + masked},
	{regexp.MustCompile(`x-api-key:\s*([^\s]+)`), `x-api-key: ` + masked},
}

// MaskSensitiveData masks API keys and tokens in s
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}
	for _, rule := range maskRules {
		s = rule.pattern.ReplaceAllString(s, rule.replacement)
	}
	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Getenv returns the value of key, or fallback when it is unset or empty.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetenvInt is Getenv for integers; unparsable values yield fallback.
func GetenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
