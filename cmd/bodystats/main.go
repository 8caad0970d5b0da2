package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/bodystats/internal/app"
	"github.com/ayusman/bodystats/internal/config"
	"github.com/ayusman/bodystats/internal/ingest"
	"github.com/ayusman/bodystats/internal/recording"
	"github.com/ayusman/bodystats/internal/server"
	"github.com/ayusman/bodystats/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON configuration file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	replay := flag.String("replay", "", "recording file or embedded recording name to replay at startup")
	flag.Parse()

	fmt.Println("bodystats - Hand Height Statistics")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Initialize the store
	resolved, err := cfg.ResolvedDBPath()
	if err != nil {
		log.Fatalf("Failed to resolve database path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(resolved)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()
	fmt.Printf("Recording to: %s\n", resolved)

	a := app.New(app.Config{
		Store:        st,
		MaxMinima:    cfg.MaxMinima,
		HistoryLimit: cfg.HistoryLimit,
	})
	a.Start()
	defer a.Stop()

	// Connect the MQTT bridge if a broker is configured
	if cfg.MQTT.Enabled() {
		client, err := ingest.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.Fatalf("Failed to connect MQTT bridge: %v", err)
		}
		defer client.Close()

		bridge := ingest.NewBridge(a, client, ingest.Topics{
			Updates: cfg.MQTT.UpdatesTopic,
			Stats:   cfg.MQTT.StatsTopic,
		})
		a.Subscribe(bridge.PublishReports)
		if err := bridge.Start(client); err != nil {
			log.Fatalf("Failed to start MQTT bridge: %v", err)
		}
	}

	if *replay != "" {
		sets, err := recording.Open(*replay)
		if err != nil {
			log.Fatalf("Failed to load recording: %v", err)
		}
		// Every change set is queued; skipping one would splice the histories.
		for _, cs := range sets {
			if err := a.Submit(context.Background(), cs); err != nil {
				log.Printf("Replay: %v", err)
			}
		}
		fmt.Printf("Replayed %d change sets from %s\n", len(sets), *replay)
	}

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
	})

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.ListenAddr)
		errCh <- srv.ListenAndServe(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Printf("Server failed: %v", err)
	case <-sigCh:
		log.Println("Shutting down")
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.bodystats/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".bodystats", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
