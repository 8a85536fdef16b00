// Command deposit-watcher polls Bitcoin chain state through a
// custody.ChainOracle and drives lifecycle.DepositTracker's state
// machine to completion: confirmation counting, threshold-signed
// sweeps, and SPV-gated mint verification (spec §4.E/§5.A). Flag/env
// wiring follows the certen validator pack's main.go idiom.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/cheng-chun-yuan/zVault-sub001/custody"
	"github.com/cheng-chun-yuan/zVault-sub001/frost"
	"github.com/cheng-chun-yuan/zVault-sub001/lifecycle"
	"github.com/cheng-chun-yuan/zVault-sub001/pool"
	"github.com/cheng-chun-yuan/zVault-sub001/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		esploraURL  = flag.String("esplora-url", "", "Esplora API base URL (overrides ESPLORA_URL, default testnet)")
		signerURLs  = flag.String("signer-urls", "", "comma-separated frost-signer URLs (overrides FROST_SIGNER_URLS)")
		threshold   = flag.Int("threshold", 0, "FROST signing threshold (overrides FROST_THRESHOLD)")
		groupPubHex = flag.String("group-pubkey", "", "hex-encoded compressed group public key (overrides FROST_GROUP_PUBKEY)")
		poolAddrHex = flag.String("pool-internal-key", "", "hex-encoded x-only internal key for the pool's deposit address (overrides POOL_INTERNAL_KEY)")
		authority   = flag.String("authority", "", "pool authority identity (overrides POOL_AUTHORITY)")
		minDeposit  = flag.Uint64("min-deposit-sats", 10_000, "minimum deposit size in satoshis")
		maxDeposit  = flag.Uint64("max-deposit-sats", 1_000_000_000, "maximum deposit size in satoshis")
		interval    = flag.Duration("poll-interval", 0, "polling interval (overrides WATCH_POLL_INTERVAL, default 30s)")
		listenAddr  = flag.String("listen", "", "HTTP listen address for registration/status (overrides WATCH_LISTEN_ADDR, default :8402)")
		testnet     = flag.Bool("testnet", true, "build deposit addresses against Bitcoin testnet3 instead of mainnet")
	)
	flag.Parse()

	network := &chaincfg.MainNetParams
	if *testnet {
		network = &chaincfg.TestNet3Params
	}

	url := firstNonEmpty(*esploraURL, os.Getenv("ESPLORA_URL"), custody.TestnetEsploraURL)
	oracle := custody.NewEsploraOracle(url)

	urls := splitNonEmpty(firstNonEmpty(*signerURLs, os.Getenv("FROST_SIGNER_URLS")))
	if len(urls) == 0 {
		log.Fatal("at least one frost-signer URL is required: pass -signer-urls or set FROST_SIGNER_URLS")
	}

	th := *threshold
	if th == 0 {
		th = parseIntEnvOrDie("FROST_THRESHOLD", len(urls))
	}

	groupPub := mustHexBytes33(firstNonEmpty(*groupPubHex, os.Getenv("FROST_GROUP_PUBKEY")), "group public key")
	coordinator := frost.NewCoordinator(urls, th, groupPub)

	internalKey := mustHex32(firstNonEmpty(*poolAddrHex, os.Getenv("POOL_INTERNAL_KEY")), "pool internal key")
	poolAddr := &custody.DepositAddress{OutputKey: internalKey, InternalKey: internalKey}

	authorityID := firstNonEmpty(*authority, os.Getenv("POOL_AUTHORITY"), "deposit-watcher")

	p := pool.New()
	if err := p.Initialize(authorityID, internalKey, *minDeposit, *maxDeposit, custody.RequiredConfirmations, time.Now()); err != nil {
		log.Fatalf("pool.Initialize: %v", err)
	}
	tracker := lifecycle.NewDepositTracker(p, oracle, coordinator, poolAddr, custody.RequiredConfirmations)
	records := store.NewMemoryStore()

	pollInterval := *interval
	if pollInterval == 0 {
		pollInterval = 30 * time.Second
	}

	addr := firstNonEmpty(*listenAddr, os.Getenv("WATCH_LISTEN_ADDR"), ":8402")
	mux := http.NewServeMux()
	registerHandlers(mux, tracker, internalKey, network)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("deposit-watcher HTTP API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	log.Printf("deposit-watcher polling every %s against %s", pollInterval, url)
	for {
		select {
		case <-ctx.Done():
			log.Print("shutting down deposit-watcher")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("http server shutdown: %v", err)
			}
			shutdownCancel()
			return
		case <-ticker.C:
			tracker.Tick(oracle.Now())
			persistAll(tracker, records)
		}
	}
}

// registerHandlers exposes deposit registration and status lookup over
// HTTP, matching frost/http.go's writeJSON/writeJSONError request shape.
// Each registration builds its own dual-path Taproot address from the
// pool's internal key and the depositor's refund key (custody §4.E) —
// the client never gets to dictate the address its funds are tracked
// under.
func registerHandlers(mux *http.ServeMux, tracker *lifecycle.DepositTracker, internalKey [32]byte, network *chaincfg.Params) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/deposits", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			RefundPubKey string `json:"refund_pubkey"`
			Commitment   string `json:"commitment"`
			AmountSats   uint64 `json:"amount_sats"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		commitment, err := hex.DecodeString(req.Commitment)
		if err != nil || len(commitment) != 32 {
			writeJSONError(w, "invalid commitment", http.StatusBadRequest)
			return
		}
		var commitmentArr [32]byte
		copy(commitmentArr[:], commitment)

		refundRaw, err := hex.DecodeString(req.RefundPubKey)
		if err != nil || len(refundRaw) != 32 {
			writeJSONError(w, "invalid refund_pubkey", http.StatusBadRequest)
			return
		}
		var refundPubKey [32]byte
		copy(refundPubKey[:], refundRaw)

		depositAddr, err := custody.BuildDepositAddress(internalKey, refundPubKey, custody.RefundTimelockBlocks(network), network)
		if err != nil {
			writeJSONError(w, "failed to build deposit address: "+err.Error(), http.StatusBadRequest)
			return
		}

		d := tracker.Register(depositAddr, commitmentArr, req.AmountSats, time.Now())
		writeJSON(w, http.StatusOK, map[string]string{"id": d.ID, "address": depositAddr.Address})
	})

	mux.HandleFunc("/deposits/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/deposits/")
		d, ok := tracker.Get(id)
		if !ok {
			writeJSONError(w, "deposit not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, d)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// persistAll mirrors each in-memory TrackedDeposit into records so a
// status page or restart can read the watcher's last-known state.
func persistAll(tracker *lifecycle.DepositTracker, records *store.MemoryStore) {
	for _, status := range []pool.DepositStatus{
		pool.DepositPending, pool.DepositDetected, pool.DepositConfirming, pool.DepositConfirmed,
		pool.DepositSweeping, pool.DepositSweepConfirming, pool.DepositVerifying, pool.DepositReady,
		pool.DepositClaimed, pool.DepositFailed,
	} {
		for _, d := range tracker.ByStatus(status) {
			if _, err := records.GetByID(d.ID); err != nil {
				_ = records.Insert(d)
				continue
			}
			_ = records.Update(d)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntEnvOrDie(name string, fallback int) int {
	env := os.Getenv(name)
	if env == "" {
		return fallback
	}
	v, err := strconv.Atoi(env)
	if err != nil {
		log.Fatalf("invalid %s: %v", name, err)
	}
	return v
}

func mustHex32(s, label string) [32]byte {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		log.Fatalf("invalid %s: expected 32 hex-encoded bytes", label)
	}
	var out [32]byte
	copy(out[:], raw)
	return out
}

func mustHexBytes33(s, label string) [33]byte {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 33 {
		log.Fatalf("invalid %s: expected 33 hex-encoded bytes", label)
	}
	var out [33]byte
	copy(out[:], raw)
	return out
}
