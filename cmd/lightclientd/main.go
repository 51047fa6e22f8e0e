// Command lightclientd runs a BFT light client core against a set of
// peers, verifying to a target height (or the primary's chain head) via
// skipping verification and reporting the trusted result.
//
// Usage:
//
//	lightclientd -chainid demo-1 -primary alice -witnesses bob,carol
//
// Flags:
//
//	-datadir         Data directory path, used with -persistent
//	-persistent      Use a goleveldb-backed store instead of in-memory
//	-chainid         Chain identifier to verify against (required)
//	-primary         Primary peer id (required)
//	-witnesses       Comma-separated witness peer ids
//	-height          Target height to verify to (0 = chain head)
//	-trusting-period Trusting period (default 504h)
//	-clock-drift     Allowed future clock drift (default 10s)
//	-verbosity       Log level 0-5 (default 3)
//	-version         Print version and exit
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chainkit/lightclient/lightclient"
	"github.com/chainkit/lightclient/log"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		if code == 0 {
			fmt.Printf("lightclientd %s (commit %s)\n", version, commit)
		}
		return code
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	logger := log.New(verbosityToLevel(cfg.Verbosity))
	log.SetDefault(logger)
	l := logger.Module("lightclientd")

	// No real RPC client is in scope for this core (see SPEC_FULL.md's
	// Non-goals); the bundled demo chain exercises the full verification
	// and supervisor pipeline against synthetic, self-signed data so the
	// binary is runnable standalone.
	primary := lightclient.PeerID(cfg.Primary)
	witnesses := parsePeers(cfg.Witnesses)
	allPeers := append([]lightclient.PeerID{primary}, witnesses...)

	chain := newDemoChain(cfg.ChainID, 4, 32)
	genesis := chain.blocks[1]

	supCfg := lightclient.DefaultSupervisorConfig()
	supCfg.Options.TrustingPeriod = cfg.TrustingPeriod
	supCfg.Options.ClockDrift = cfg.ClockDrift

	var sup *lightclient.Supervisor
	var err error
	if cfg.Persistent {
		sup, err = lightclient.NewSupervisorWithStores(chain, demoEvidenceReporter{}, allPeers, genesis, supCfg, func(peer lightclient.PeerID) (lightclient.LightStore, error) {
			return lightclient.OpenPersistentLightStore(filepath.Join(cfg.DataDir, string(peer)))
		})
	} else {
		sup, err = lightclient.NewSupervisor(chain, demoEvidenceReporter{}, allPeers, genesis, supCfg)
	}
	if err != nil {
		l.Error("failed to start supervisor", "err", err)
		return 1
	}
	defer sup.Close()

	target := lightclient.Height(cfg.TargetHeight)
	if target == 0 {
		target = chain.highest
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.Info("verifying", "chainid", cfg.ChainID, "primary", cfg.Primary, "target", target)
	trusted, err := sup.VerifyToTarget(ctx, target)
	if err != nil {
		l.Error("verification failed", "err", err)
		return 1
	}

	l.Info("verified", "height", trusted.Height(), "peers", sup.PeerStates())
	return 0
}

func parsePeers(csv string) []lightclient.PeerID {
	if csv == "" {
		return nil
	}
	var out []lightclient.PeerID
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, lightclient.PeerID(p))
		}
	}
	return out
}

func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError + 4 // effectively silent
	case v == 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
