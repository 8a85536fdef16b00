// Command frost-signer runs one FROST threshold-signing node's HTTP API
// (spec §4.F / §6): DKG round 1/2/finalize plus signing round 1/2,
// exposed over frost.Handlers. Flag/env wiring and graceful shutdown
// follow the certen validator pack's main.go idiom.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/frost"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		identifier = flag.Uint("id", 0, "FROST signer identifier (overrides FROST_SIGNER_ID)")
		listenAddr = flag.String("listen", "", "HTTP listen address (overrides FROST_LISTEN_ADDR, default :8401)")
	)
	flag.Parse()

	id := *identifier
	if id == 0 {
		if env := os.Getenv("FROST_SIGNER_ID"); env != "" {
			parsed, err := strconv.ParseUint(env, 10, 32)
			if err != nil {
				log.Fatalf("invalid FROST_SIGNER_ID %q: %v", env, err)
			}
			id = uint(parsed)
		}
	}
	if id == 0 {
		log.Fatal("a nonzero signer identifier is required: pass -id or set FROST_SIGNER_ID")
	}

	addr := *listenAddr
	if addr == "" {
		addr = os.Getenv("FROST_LISTEN_ADDR")
	}
	if addr == "" {
		addr = ":8401"
	}

	manager := frost.NewManager(frost.Identifier(id))
	handlers := frost.NewHandlers(manager)

	mux := http.NewServeMux()
	handlers.Register(mux)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Printf("frost-signer %d listening on %s", id, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Print("shutting down frost-signer")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
}
