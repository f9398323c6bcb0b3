package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that provide defaults for the command line.
const (
	EnvConfigPath = "PAGESIM_CONFIG"
	EnvVerbose    = "PAGESIM_VERBOSE"
	EnvLogLevel   = "PAGESIM_LOG_LEVEL"
)

// LoadEnv loads environment files. Files that do not exist are skipped and
// variables already set in the environment are kept.
func LoadEnv(files ...string) error {
	for _, file := range files {
		err := godotenv.Load(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// EnvString returns the value of an environment variable or def if unset.
func EnvString(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}

	return v
}

// EnvBool returns the boolean value of an environment variable or def if it
// is unset or unparsable.
func EnvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}
