package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/ameling/kinship/pkg/bus"
	"github.com/ameling/kinship/pkg/config"
	"github.com/ameling/kinship/pkg/logger"
	"github.com/ameling/kinship/pkg/relationship"
	"github.com/ameling/kinship/pkg/server"
	"github.com/ameling/kinship/pkg/store"
	"github.com/ameling/kinship/pkg/sweep"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "kinship"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	fmt.Printf("  Go: %s\n", goVer)
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".kinship", "config.json")
}

func loadConfigAt(path string) (*config.Config, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// onboard writes a default config file if none exists yet.
func onboard(path string) error {
	if path == "" {
		path = defaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}
	if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("✓ Created default config at %s\n", path)
	fmt.Println("Edit it, then run: kinship serve")
	return nil
}

// serveCmd runs the HTTP gateway with the maintenance sweep and a
// notification drain until interrupted.
func serveCmd(configPath string, debug bool) error {
	cfg, err := loadConfigAt(configPath)
	if err != nil {
		return err
	}
	if debug || cfg.Debug {
		logger.SetDebug(true)
	}

	st, err := store.NewSQLiteStore(cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eng, err := relationship.New(cfg, st)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	nb := bus.NewNotificationBus()
	defer nb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Drain the bus into the log until a delivery collaborator is attached.
	go func() {
		for {
			n, ok := nb.Consume(ctx)
			if !ok {
				return
			}
			logger.InfoCF("notify", string(n.Type), map[string]interface{}{
				"user_id":      n.UserID,
				"companion_id": n.CompanionID,
				"detail":       n.Detail,
			})
		}
	}()

	var sweeper *sweep.Runner
	if cfg.Sweep.Enabled {
		sweeper, err = sweep.New(eng, cfg.Sweep.Schedule)
		if err != nil {
			return fmt.Errorf("init sweep: %w", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
		fmt.Printf("✓ Maintenance sweep scheduled (%s)\n", cfg.Sweep.Schedule)
	}

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.New(eng, nb, formatVersion(), st.Ping),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	fmt.Printf("✓ Gateway started on %s\n", addr)
	fmt.Println("Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: %w", err)
		}
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WarnCF("server", "shutdown incomplete", map[string]interface{}{"error": err.Error()})
		}
	}

	fmt.Println("✓ Stopped")
	return nil
}

// stateCmd prints the stored state for one pair as JSON.
func stateCmd(configPath, userID, companionID string) error {
	cfg, err := loadConfigAt(configPath)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eng, err := relationship.New(cfg, st)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	pair := relationship.PairID{UserID: userID, CompanionID: companionID}
	state, err := eng.GetState(context.Background(), pair)
	if err != nil {
		if errors.Is(err, relationship.ErrPairNotFound) {
			return fmt.Errorf("no state for pair %s", pair)
		}
		return err
	}
	return printJSON(state)
}

// applyCmd applies one interaction locally, without the HTTP gateway.
func applyCmd(configPath string, pair relationship.PairID, ev relationship.Event) error {
	cfg, err := loadConfigAt(configPath)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eng, err := relationship.New(cfg, st)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	state, notifs, err := eng.ApplyInteraction(context.Background(), pair, ev)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"state":         state,
		"notifications": notifs,
	})
}

// achievementsCmd prints the achievement registry.
func achievementsCmd() error {
	for _, def := range relationship.DefaultAchievements() {
		fmt.Printf("%-16s %s: %s\n", def.ID, def.Name, def.Description)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
