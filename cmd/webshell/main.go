// Package main is the entry point for the webshell process.
//
// webshell is the native half of an embedded web application: it decides
// which navigations stay inside the embedded surface, injects the bridge
// script into every page load, mirrors the session token across restarts,
// and brokers bridge messages (share, external open, push registration)
// between the hosted content and the device.
//
// The surface host (the program embedding the actual browser view)
// connects over a loopback WebSocket and is driven entirely by the shell.
//
// Configuration:
//   - YAML profile (app endpoints, trusted domains)
//   - Environment variables override the profile (12-factor)
//
// Usage:
//
//	# Point at an application profile
//	./webshell -profile profiles/myapp.yaml
//
//	# Development mode (colored logs, debug level)
//	./webshell -profile profiles/myapp.yaml -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/webshell/webshell/internal/infrastructure/config"
	"github.com/webshell/webshell/internal/server"
)

func main() {
	profile := flag.String("profile", "", "Path to application profile (YAML)")
	dev := flag.Bool("dev", false, "Development mode")
	flag.Parse()

	cfg, err := config.Load(*profile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dev {
		cfg.Logging.Development = true
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create shell: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Shell error: %v", err)
	}
}
