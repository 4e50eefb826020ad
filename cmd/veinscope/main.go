package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/circuito/veinscope/internal/app"
	"github.com/circuito/veinscope/internal/capture"
	"github.com/circuito/veinscope/internal/config"
	"github.com/circuito/veinscope/internal/detector"
	"github.com/circuito/veinscope/internal/server"
	"github.com/circuito/veinscope/internal/store"
	"github.com/circuito/veinscope/internal/tray"
)

func main() {
	configPath := flag.String("config", "veinscope.yaml", "path to the YAML configuration file")
	flag.Parse()

	fmt.Println("VeinScope - Near-Infrared Vein Imaging")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the store
	dbPath, err := resolveStoragePath(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}

	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	a := app.New(app.Config{
		Store: st,
		Camera: capture.Config{
			DeviceID: cfg.Camera.Index,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
		},
		ModelPath:     cfg.Model.Path,
		ClassesPath:   cfg.Model.ClassesPath,
		ConfThreshold: cfg.Model.ConfidenceThreshold,
	})

	// A missing camera is not fatal: the API and stored profiles stay
	// reachable so the operator can fix the device and retry.
	if err := a.Start(); err != nil {
		log.Printf("Imaging pipeline not started: %v", err)
	}

	// Find web directory
	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	// Configure and start server
	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			a.Stop()
			if err := st.Close(); err != nil {
				log.Printf("Error closing store: %v", err)
			}
			detector.ShutdownRuntime()
		})
	}

	if cfg.Application.Tray {
		runTray(cfg.Server.Addr, a, shutdown)
	} else {
		waitForSignal()
	}
	shutdown()
}

// runTray blocks on the system tray loop until the user quits or a
// termination signal arrives. The quit callback runs the shared
// shutdown exactly once.
func runTray(addr string, a *app.App, shutdown func()) {
	t := tray.New()
	t.SetEnabled(a.IsEnabled())
	if a.ModelLoaded() {
		t.SetBackend("model")
	}
	t.OnToggle(a.SetEnabled)
	t.OnDashboard(func() { openBrowser(dashboardURL(addr)) })
	t.OnQuit(shutdown)

	// systray owns the main goroutine, so signals are forwarded to the
	// same quit path the menu uses.
	go func() {
		waitForSignal()
		t.Quit()
	}()

	t.Run()
}

// waitForSignal blocks until SIGINT or SIGTERM arrives.
func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

// resolveStoragePath returns the database path and makes sure its parent
// directory exists. An empty configured path falls back to ~/.veinscope.
func resolveStoragePath(configured string) (string, error) {
	if configured != "" {
		if err := os.MkdirAll(filepath.Dir(configured), 0755); err != nil {
			return "", err
		}
		return configured, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dbDir := filepath.Join(homeDir, ".veinscope")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dbDir, "veinscope.db"), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.veinscope/web.
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

	homeWebDir := filepath.Join(homeDir, ".veinscope", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

// dashboardURL builds a browser-openable URL from the listen address.
func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// openBrowser opens the dashboard in the default browser.
func openBrowser(url string) {
	if err := exec.Command("xdg-open", url).Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
