// Peerchat CLI entry point.
//
// A small group chat over a reliable UDP transport. One participant hosts and
// relays; everyone else joins by address. The session can be set up from the
// interactive menu (no flags) or straight from -role and -name.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/peerchat/internal/app"
	"github.com/1ureka/peerchat/internal/config"
	"github.com/1ureka/peerchat/internal/transport"
	"github.com/1ureka/peerchat/internal/ui"
	"github.com/1ureka/peerchat/internal/util"

	_ "github.com/1ureka/peerchat/internal/transport/quic"
	_ "github.com/1ureka/peerchat/internal/transport/rtc"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags. Zero values leave the loaded configuration alone.
	configPath := flag.String("config", "", "Path to a YAML config file (default ./peerchat.yaml if present)")
	role := flag.String("role", "", "Role: host or client (empty: choose in the menu)")
	name := flag.String("name", "", "Display name (empty: ask)")
	driver := flag.String("driver", "", "Transport driver: "+strings.Join(transport.Drivers(), ", "))
	address := flag.String("address", "", "Host address to join (client only)")
	port := flag.Int("port", 0, "Session port, 1~65535")
	maxPeers := flag.Int("max-peers", 0, "Maximum simultaneous clients (host only)")
	logFile := flag.String("log-file", "", "Write logs to this file instead of stderr")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	overrideString(&cfg.Driver, *driver)
	overrideString(&cfg.Address, *address)
	overrideString(&cfg.Nickname, strings.TrimSpace(*name))
	overrideString(&cfg.Log.File, *logFile)
	if *role != "" {
		cfg.Role = config.Role(strings.ToLower(*role))
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *maxPeers != 0 {
		cfg.MaxPeers = *maxPeers
	}

	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if *debugMode {
		cfg.Log.Level = "debug"
	}
	if err := util.SetLogLevel(cfg.Log.Level); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if cfg.Log.File != "" {
		closeLog := util.SetLogFile(util.LogFile{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
		defer closeLog()
	}

	pterm.Info.Println(fmt.Sprintf("Peerchat v%s (%s driver)", version, cfg.Driver))
	pterm.Println()

	if err := run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// run drives one session until the user quits or the context is cancelled.
func run(ctx context.Context, cfg config.Config) error {
	a, err := app.New(app.Options{
		Config:  cfg,
		Display: ui.NewConsole(os.Stdin, os.Stdout),
	})
	if err != nil {
		return err
	}

	util.StartStatsReporter(ctx)
	return a.Run(ctx)
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
