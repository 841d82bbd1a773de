package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/agbru/zkfib/internal/errors"
)

// getEnvString returns $ZKFIB_<key>, or defaultVal when unset.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvUint32 parses $ZKFIB_<key> as a uint32. Malformed values are an
// error rather than silently ignored.
func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return defaultVal, apperrors.NewConfigError("%s%s=%q is not a valid 32-bit unsigned integer", EnvPrefix, key, val)
	}
	return uint32(parsed), nil
}

// getEnvBool parses $ZKFIB_<key>. It accepts true/1/yes and false/0/no,
// case-insensitively; anything else keeps defaultVal.
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

// getEnvDuration parses $ZKFIB_<key> with time.ParseDuration.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal, apperrors.NewConfigError("%s%s=%q is not a valid duration", EnvPrefix, key, val)
	}
	return parsed, nil
}

// isFlagSet reports whether any of names was given on the command line.
func isFlagSet(fs *flag.FlagSet, names ...string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				found = true
			}
		}
	})
	return found
}

// applyEnvOverrides copies ZKFIB_* variables into config for every setting
// not given on the command line.
//
// Supported variables: ZKFIB_N, ZKFIB_ALGO, ZKFIB_TIMEOUT, ZKFIB_DETAILS,
// ZKFIB_JSON, ZKFIB_SERVER, ZKFIB_PORT, ZKFIB_NO_COLOR, ZKFIB_QUIET,
// ZKFIB_OUTPUT, ZKFIB_MAX_RECURSIVE_N, ZKFIB_MAX_N, ZKFIB_TRUSTED_PROXIES,
// ZKFIB_CACHE_ADDR, ZKFIB_CACHE_TTL, ZKFIB_LOG_LEVEL and ZKFIB_CONFIG.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) error {
	if err := applyNumericOverrides(config, fs); err != nil {
		return err
	}
	if err := applyDurationOverrides(config, fs); err != nil {
		return err
	}
	applyStringOverrides(config, fs)
	applyBooleanOverrides(config, fs)
	return nil
}

func applyNumericOverrides(config *AppConfig, fs *flag.FlagSet) error {
	var err error
	if !isFlagSet(fs, "n") {
		if config.N, err = getEnvUint32("N", config.N); err != nil {
			return err
		}
	}
	if !isFlagSet(fs, "max-recursive-n") {
		if config.MaxRecursiveN, err = getEnvUint32("MAX_RECURSIVE_N", config.MaxRecursiveN); err != nil {
			return err
		}
	}
	if !isFlagSet(fs, "max-n") {
		if config.MaxN, err = getEnvUint32("MAX_N", config.MaxN); err != nil {
			return err
		}
	}
	return nil
}

func applyDurationOverrides(config *AppConfig, fs *flag.FlagSet) error {
	var err error
	if !isFlagSet(fs, "timeout") {
		if config.Timeout, err = getEnvDuration("TIMEOUT", config.Timeout); err != nil {
			return err
		}
	}
	if !isFlagSet(fs, "cache-ttl") {
		if config.CacheTTL, err = getEnvDuration("CACHE_TTL", config.CacheTTL); err != nil {
			return err
		}
	}
	return nil
}

func applyStringOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "algo") {
		config.Algo = getEnvString("ALGO", config.Algo)
	}
	if !isFlagSet(fs, "port") {
		config.Port = getEnvString("PORT", config.Port)
	}
	if !isFlagSet(fs, "output", "o") {
		config.OutputFile = getEnvString("OUTPUT", config.OutputFile)
	}
	if !isFlagSet(fs, "cache-addr") {
		config.CacheAddr = getEnvString("CACHE_ADDR", config.CacheAddr)
	}
	if !isFlagSet(fs, "log-level") {
		config.LogLevel = getEnvString("LOG_LEVEL", config.LogLevel)
	}
	if !isFlagSet(fs, "trusted-proxies") {
		if val := getEnvString("TRUSTED_PROXIES", ""); val != "" {
			config.TrustedProxies = splitList(val)
		}
	}
}

func applyBooleanOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "server") {
		config.ServerMode = getEnvBool("SERVER", config.ServerMode)
	}
	if !isFlagSet(fs, "json") {
		config.JSONOutput = getEnvBool("JSON", config.JSONOutput)
	}
	if !isFlagSet(fs, "d", "details") {
		config.Details = getEnvBool("DETAILS", config.Details)
	}
	if !isFlagSet(fs, "quiet", "q") {
		config.Quiet = getEnvBool("QUIET", config.Quiet)
	}
	if !isFlagSet(fs, "no-color") {
		config.NoColor = getEnvBool("NO_COLOR", config.NoColor)
	}
}
