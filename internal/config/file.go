package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/zkfib/internal/errors"
)

// FileConfig is the YAML form of the configuration. Every field is optional;
// absent keys leave the default in place. Unknown keys are rejected.
//
//	n: 48
//	algo: matrix
//	timeout: 30s
//	server: true
//	port: "9090"
//	max_n: 10000000
//	trusted_proxies: [10.0.0.0/8]
//	cache:
//	  addr: localhost:6379
//	  ttl: 1h
type FileConfig struct {
	N              *uint32        `yaml:"n"`
	Algo           *string        `yaml:"algo"`
	Timeout        *time.Duration `yaml:"timeout"`
	Details        *bool          `yaml:"details"`
	JSON           *bool          `yaml:"json"`
	Server         *bool          `yaml:"server"`
	Port           *string        `yaml:"port"`
	NoColor        *bool          `yaml:"no_color"`
	Quiet          *bool          `yaml:"quiet"`
	Output         *string        `yaml:"output"`
	MaxRecursiveN  *uint32        `yaml:"max_recursive_n"`
	MaxN           *uint32        `yaml:"max_n"`
	TrustedProxies []string       `yaml:"trusted_proxies"`
	LogLevel       *string        `yaml:"log_level"`
	Cache          struct {
		Addr *string        `yaml:"addr"`
		TTL  *time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
}

// LoadFile reads and decodes a YAML configuration file.
func LoadFile(path string) (FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileConfig{}, apperrors.NewConfigError("reading config file: %v", err)
	}
	defer f.Close()

	var fc FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, apperrors.NewConfigError("parsing config file %s: %v", path, err)
	}
	return fc, nil
}

// applyTo copies the values present in the file into config, skipping any
// setting given on the command line.
func (fc FileConfig) applyTo(config *AppConfig, fs *flag.FlagSet) {
	setIf(fc.N, &config.N, !isFlagSet(fs, "n"))
	setIf(fc.Algo, &config.Algo, !isFlagSet(fs, "algo"))
	setIf(fc.Timeout, &config.Timeout, !isFlagSet(fs, "timeout"))
	setIf(fc.Details, &config.Details, !isFlagSet(fs, "d", "details"))
	setIf(fc.JSON, &config.JSONOutput, !isFlagSet(fs, "json"))
	setIf(fc.Server, &config.ServerMode, !isFlagSet(fs, "server"))
	setIf(fc.Port, &config.Port, !isFlagSet(fs, "port"))
	setIf(fc.NoColor, &config.NoColor, !isFlagSet(fs, "no-color"))
	setIf(fc.Quiet, &config.Quiet, !isFlagSet(fs, "quiet", "q"))
	setIf(fc.Output, &config.OutputFile, !isFlagSet(fs, "output", "o"))
	setIf(fc.MaxRecursiveN, &config.MaxRecursiveN, !isFlagSet(fs, "max-recursive-n"))
	setIf(fc.MaxN, &config.MaxN, !isFlagSet(fs, "max-n"))
	if fc.TrustedProxies != nil && !isFlagSet(fs, "trusted-proxies") {
		config.TrustedProxies = fc.TrustedProxies
	}
	setIf(fc.LogLevel, &config.LogLevel, !isFlagSet(fs, "log-level"))
	setIf(fc.Cache.Addr, &config.CacheAddr, !isFlagSet(fs, "cache-addr"))
	setIf(fc.Cache.TTL, &config.CacheTTL, !isFlagSet(fs, "cache-ttl"))
}

func setIf[T any](src *T, dst *T, allowed bool) {
	if src != nil && allowed {
		*dst = *src
	}
}
