// Package config loads server settings from defaults, an optional .env
// file, ARENA_* environment variables and command-line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
)

const envPrefix = "ARENA_"

type Config struct {
	Addr        string
	DefaultMode string
	// ModesFile is an optional YAML file of extra modes.
	ModesFile string

	LogLevel  string
	LogFormat string

	BotDelay        time.Duration
	IdleRoomTimeout time.Duration
	ShutdownTimeout time.Duration

	WSRate         float64
	WSBurst        int
	AllowedOrigins []string
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		BotDelay:        2 * time.Second,
		IdleRoomTimeout: 2 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		WSRate:          5,
		WSBurst:         10,
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load parses args (without the program name). pflag.ErrHelp is returned
// as is so the caller can print usage.
func Load(args []string, lookup LookupFunc) (Config, *pflag.FlagSet, error) {
	cfg := Default()
	flagSet := pflag.NewFlagSet("arena-server", pflag.ContinueOnError)
	envFile := flagSet.String("env-file", ".env", "dotenv file to read before the environment")
	flagSet.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flagSet.StringVar(&cfg.DefaultMode, "default-mode", cfg.DefaultMode, "mode used when a request names none")
	flagSet.StringVar(&cfg.ModesFile, "modes-file", cfg.ModesFile, "YAML file with extra game modes")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flagSet.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or console")
	flagSet.DurationVar(&cfg.BotDelay, "bot-delay", cfg.BotDelay, "how long bots wait before acting")
	flagSet.DurationVar(&cfg.IdleRoomTimeout, "idle-room-timeout", cfg.IdleRoomTimeout, "lifetime of a private room nobody joins")
	flagSet.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "grace period for in-flight requests on shutdown")
	flagSet.Float64Var(&cfg.WSRate, "ws-rate", cfg.WSRate, "client messages per second per connection")
	flagSet.IntVar(&cfg.WSBurst, "ws-burst", cfg.WSBurst, "client message burst per connection")
	flagSet.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "extra websocket origin patterns")

	if err := flagSet.Parse(args); err != nil {
		return cfg, flagSet, err
	}

	dotenv, err := godotenv.Read(*envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || flagSet.Changed("env-file") {
			return cfg, flagSet, errs.Config("read %s: %v", *envFile, err)
		}
		dotenv = map[string]string{}
	}

	var merr error
	flagSet.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "env-file" {
			return
		}
		key := EnvName(f.Name)
		v, ok := lookup(key)
		if !ok {
			v, ok = dotenv[key]
		}
		if !ok {
			return
		}
		if err := f.Value.Set(v); err != nil {
			merr = multierr.Append(merr, errs.Config("%s=%q: %v", key, v, err))
		}
	})
	if merr != nil {
		return cfg, flagSet, merr
	}
	return cfg, flagSet, cfg.Validate()
}

// EnvName maps a flag name to its environment variable.
func EnvName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func (c Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errs.Config("addr is empty"))
	}
	if _, perr := zapcore.ParseLevel(c.LogLevel); perr != nil {
		err = multierr.Append(err, errs.Config("log level %q", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		err = multierr.Append(err, errs.Config("log format %q is not json or console", c.LogFormat))
	}
	if c.BotDelay <= 0 {
		err = multierr.Append(err, errs.Config("bot delay must be positive"))
	}
	if c.IdleRoomTimeout <= 0 {
		err = multierr.Append(err, errs.Config("idle room timeout must be positive"))
	}
	if c.WSRate <= 0 || c.WSBurst < 1 {
		err = multierr.Append(err, errs.Config("ws rate %v and burst %d must be positive", c.WSRate, c.WSBurst))
	}
	return err
}
