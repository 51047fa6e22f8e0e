package main

import (
	"errors"
	"flag"
	"time"
)

// Config holds lightclientd's CLI-configurable settings.
type Config struct {
	DataDir        string
	Persistent     bool
	ChainID        string
	Primary        string
	Witnesses      string // comma-separated
	TargetHeight   uint64
	TrustingPeriod time.Duration
	ClockDrift     time.Duration
	Verbosity      int
}

// DefaultConfig returns the out-of-the-box settings.
func DefaultConfig() Config {
	return Config{
		DataDir:        "./lightclientd-data",
		Persistent:     false,
		ChainID:        "",
		TrustingPeriod: 21 * 24 * time.Hour,
		ClockDrift:     10 * time.Second,
		Verbosity:      3,
	}
}

// Validate checks that the resolved config is usable.
func (c Config) Validate() error {
	if c.ChainID == "" {
		return errors.New("chainid is required")
	}
	if c.Primary == "" {
		return errors.New("primary peer is required")
	}
	if c.TrustingPeriod <= 0 {
		return errors.New("trustingperiod must be positive")
	}
	return nil
}

// parseFlags parses CLI arguments into a Config. Returns the config,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (Config, bool, int) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("lightclientd", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "data directory path (used when -persistent is set)")
	fs.BoolVar(&cfg.Persistent, "persistent", cfg.Persistent, "use a goleveldb-backed store instead of in-memory")
	fs.StringVar(&cfg.ChainID, "chainid", cfg.ChainID, "chain identifier to verify against")
	fs.StringVar(&cfg.Primary, "primary", cfg.Primary, "primary peer id")
	fs.StringVar(&cfg.Witnesses, "witnesses", cfg.Witnesses, "comma-separated witness peer ids")
	fs.Uint64Var(&cfg.TargetHeight, "height", cfg.TargetHeight, "target height to verify to (0 = chain head)")
	fs.DurationVar(&cfg.TrustingPeriod, "trusting-period", cfg.TrustingPeriod, "trusting period")
	fs.DurationVar(&cfg.ClockDrift, "clock-drift", cfg.ClockDrift, "allowed future clock drift")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-5 (0=silent, 4-5=debug)")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	if *showVersion {
		return cfg, true, 0
	}
	return cfg, false, 0
}
