// Package config builds the zkfib configuration from command-line flags,
// ZKFIB_* environment variables and an optional YAML file, and validates
// the result.
//
// Precedence, highest first: flags, environment, config file, defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"slices"
	"strings"
	"time"

	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/logging"
)

// EnvPrefix is the prefix of every environment variable read by zkfib.
const EnvPrefix = "ZKFIB_"

// Default configuration values.
const (
	// DefaultN is the default Fibonacci index.
	DefaultN uint32 = 20
	// DefaultTimeout bounds a whole CLI run.
	DefaultTimeout = time.Minute
	// DefaultPort is the default server port.
	DefaultPort = "8080"
	// DefaultAlgo runs every registered algorithm and compares them.
	DefaultAlgo = "all"
	// DefaultMaxRecursiveN caps n for the recursive algorithms, whose stack
	// depth grows linearly with n.
	DefaultMaxRecursiveN uint32 = 1_000_000
	// DefaultMaxN caps n for every algorithm. The calculations cannot be
	// interrupted, so the cap is what bounds the time of one request.
	DefaultMaxN uint32 = 100_000_000
	// DefaultCacheTTL is the lifetime of cached records in redis.
	DefaultCacheTTL = 24 * time.Hour
	// DefaultLogLevel is the zerolog level name used when none is given.
	DefaultLogLevel = "info"
)

// AppConfig holds every setting of a zkfib run.
type AppConfig struct {
	// N is the Fibonacci index to compute.
	N uint32
	// Algo is a registered algorithm name or "all".
	Algo string
	// Timeout bounds the whole run.
	Timeout time.Duration
	// Details prints the operation counts of every algorithm.
	Details bool
	// JSONOutput prints results as JSON.
	JSONOutput bool
	// ServerMode starts the HTTP server instead of a one-shot run.
	ServerMode bool
	// Port is the server listening port.
	Port string
	// NoColor disables colored output. NO_COLOR is honored as well.
	NoColor bool
	// Quiet prints only the result.
	Quiet bool
	// OutputFile, when set, receives the result and its public values.
	OutputFile string
	// MaxRecursiveN is the largest n accepted by the recursive algorithms.
	// It must lie in [1, fibonacci.MaxRecursionDepth].
	MaxRecursiveN uint32
	// MaxN is the largest n accepted by any algorithm. Zero disables the
	// limit, which is only allowed outside server mode.
	MaxN uint32
	// TrustedProxies lists the addresses or CIDR ranges of reverse proxies
	// whose X-Forwarded-For and X-Real-IP headers the server believes.
	TrustedProxies []string
	// CacheAddr is a redis address (host:port) for the record cache. When
	// empty an in-memory cache is used.
	CacheAddr string
	// CacheTTL is the lifetime of records in the redis cache.
	CacheTTL time.Duration
	// LogLevel is a zerolog level name.
	LogLevel string
	// ConfigFile is the YAML file the configuration was loaded from, if any.
	ConfigFile string
	// ShowVersion prints version information and exits.
	ShowVersion bool
}

// Validate checks the configuration against the registered algorithms.
func (c AppConfig) Validate(availableAlgos []string) error {
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("timeout value must be strictly positive")
	}
	if c.CacheTTL < 0 {
		return apperrors.NewConfigError("cache TTL cannot be negative: %s", c.CacheTTL)
	}
	if c.Algo != DefaultAlgo && !slices.Contains(availableAlgos, c.Algo) {
		return apperrors.NewConfigError("unrecognized algorithm: '%s'. Valid algorithms are: 'all' or [%s]", c.Algo, strings.Join(availableAlgos, ", "))
	}
	if c.MaxRecursiveN == 0 || c.MaxRecursiveN > fibonacci.MaxRecursionDepth {
		return apperrors.NewConfigError("max recursive n must be between 1 and %d, got %d", fibonacci.MaxRecursionDepth, c.MaxRecursiveN)
	}
	if c.N > c.MaxRecursiveN && fibonacci.IsRecursive(c.Algo) {
		return apperrors.NewConfigError("n=%d exceeds the recursion limit %d for algorithm '%s'", c.N, c.MaxRecursiveN, c.Algo)
	}
	if c.MaxN > 0 && c.N > c.MaxN {
		return apperrors.NewConfigError("n=%d exceeds the index limit %d", c.N, c.MaxN)
	}
	if c.ServerMode && c.Port == "" {
		return apperrors.NewConfigError("a port is required in server mode")
	}
	if c.ServerMode && c.MaxN == 0 {
		return apperrors.NewConfigError("an index limit (max n) is required in server mode")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as a
// single-host prefix.
func (c AppConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, apperrors.NewConfigError("invalid trusted proxy %q: %v", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid trusted proxy %q: %v", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// ParseConfig parses args (typically os.Args[1:]), merges the environment
// and the optional config file, and validates the result. Usage and errors
// are printed to errorWriter.
func ParseConfig(programName string, args []string, errorWriter io.Writer, availableAlgos []string) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)
	algoHelp := fmt.Sprintf("Algorithm to use: 'all' (default) or one of [%s].", strings.Join(availableAlgos, ", "))

	config := AppConfig{}
	var n uint64
	fs.Uint64Var(&n, "n", uint64(DefaultN), "Index n of the Fibonacci pair to compute (0 to 4294967295).")
	fs.StringVar(&config.Algo, "algo", DefaultAlgo, algoHelp)
	fs.DurationVar(&config.Timeout, "timeout", DefaultTimeout, "Maximum execution time.")
	fs.BoolVar(&config.Details, "d", false, "Display operation counts for every algorithm.")
	fs.BoolVar(&config.Details, "details", false, "Alias for -d.")
	fs.BoolVar(&config.JSONOutput, "json", false, "Output results in JSON format.")
	fs.BoolVar(&config.ServerMode, "server", false, "Start in HTTP server mode.")
	fs.StringVar(&config.Port, "port", DefaultPort, "Port to listen on in server mode.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output (also respects NO_COLOR env var).")
	fs.BoolVar(&config.Quiet, "quiet", false, "Quiet mode - minimal output for scripts.")
	fs.BoolVar(&config.Quiet, "q", false, "Quiet mode (shorthand).")
	fs.StringVar(&config.OutputFile, "output", "", "Write the result and its public values to this file.")
	fs.StringVar(&config.OutputFile, "o", "", "Output file path (shorthand).")
	var maxRec uint64
	fs.Uint64Var(&maxRec, "max-recursive-n", uint64(DefaultMaxRecursiveN), fmt.Sprintf("Largest n accepted by the recursive algorithms (1 to %d).", fibonacci.MaxRecursionDepth))
	var maxN uint64
	fs.Uint64Var(&maxN, "max-n", uint64(DefaultMaxN), "Largest n accepted by any algorithm (0 for no limit, not allowed with -server).")
	var proxies string
	fs.StringVar(&proxies, "trusted-proxies", "", "Comma-separated proxy addresses or CIDRs whose forwarding headers are trusted.")
	fs.StringVar(&config.CacheAddr, "cache-addr", "", "Redis address for the record cache (in-memory cache when empty).")
	fs.DurationVar(&config.CacheTTL, "cache-ttl", DefaultCacheTTL, "Lifetime of cached records in redis.")
	fs.StringVar(&config.LogLevel, "log-level", DefaultLogLevel, "Log level: trace, debug, info, warn, error or disabled.")
	fs.StringVar(&config.ConfigFile, "config", "", "Path to a YAML configuration file.")
	fs.BoolVar(&config.ShowVersion, "version", false, "Print version information and exit.")
	fs.BoolVar(&config.ShowVersion, "V", false, "Print version information (shorthand).")

	setCustomUsage(fs)

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}

	var err error
	if config.N, err = toUint32("n", n); err != nil {
		return AppConfig{}, reportInvalid(fs, errorWriter, err)
	}
	if config.MaxRecursiveN, err = toUint32("max-recursive-n", maxRec); err != nil {
		return AppConfig{}, reportInvalid(fs, errorWriter, err)
	}
	if config.MaxN, err = toUint32("max-n", maxN); err != nil {
		return AppConfig{}, reportInvalid(fs, errorWriter, err)
	}
	config.TrustedProxies = splitList(proxies)

	if !isFlagSet(fs, "config") {
		config.ConfigFile = getEnvString("CONFIG", config.ConfigFile)
	}
	if config.ConfigFile != "" {
		file, err := LoadFile(config.ConfigFile)
		if err != nil {
			fmt.Fprintln(errorWriter, "Configuration error:", err)
			return AppConfig{}, err
		}
		file.applyTo(&config, fs)
	}

	if err := applyEnvOverrides(&config, fs); err != nil {
		return AppConfig{}, reportInvalid(fs, errorWriter, err)
	}

	config.Algo = strings.ToLower(config.Algo)
	if err := config.Validate(availableAlgos); err != nil {
		return AppConfig{}, reportInvalid(fs, errorWriter, err)
	}
	return config, nil
}

func reportInvalid(fs *flag.FlagSet, errorWriter io.Writer, err error) error {
	fmt.Fprintln(errorWriter, "Configuration error:", err)
	fs.Usage()
	var cfgErr apperrors.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}
	return apperrors.NewConfigError("invalid configuration: %v", err)
}

func toUint32(name string, v uint64) (uint32, error) {
	if v > uint64(^uint32(0)) {
		return 0, apperrors.NewConfigError("-%s=%d does not fit in 32 bits", name, v)
	}
	return uint32(v), nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var items []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
