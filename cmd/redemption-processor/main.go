// Command redemption-processor drains lifecycle.RedemptionQueue: for
// each pending pool.RedemptionRequest it builds, threshold-signs, and
// broadcasts the BTC payout transaction, then completes the request on
// the pool (spec §4.E "Sweep transaction" / §5.B redemption lifecycle).
// Flag/env wiring follows the certen validator pack's main.go idiom.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/cheng-chun-yuan/zVault-sub001/custody"
	"github.com/cheng-chun-yuan/zVault-sub001/frost"
	"github.com/cheng-chun-yuan/zVault-sub001/lifecycle"
	"github.com/cheng-chun-yuan/zVault-sub001/pool"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		esploraURL  = flag.String("esplora-url", "", "Esplora API base URL (overrides ESPLORA_URL, default testnet)")
		signerURLs  = flag.String("signer-urls", "", "comma-separated frost-signer URLs (overrides FROST_SIGNER_URLS)")
		threshold   = flag.Int("threshold", 0, "FROST signing threshold (overrides FROST_THRESHOLD)")
		groupPubHex = flag.String("group-pubkey", "", "hex-encoded compressed group public key (overrides FROST_GROUP_PUBKEY)")
		poolAddrHex = flag.String("pool-internal-key", "", "hex-encoded x-only internal key for the pool's deposit address (overrides POOL_INTERNAL_KEY)")
		authority   = flag.String("authority", "", "identity authorized to complete redemptions (overrides POOL_AUTHORITY)")
		minDeposit  = flag.Uint64("min-deposit-sats", 10_000, "minimum deposit size in satoshis")
		maxDeposit  = flag.Uint64("max-deposit-sats", 1_000_000_000, "maximum deposit size in satoshis")
		testnet     = flag.Bool("testnet", true, "decode payout addresses against Bitcoin testnet3 instead of mainnet")
		interval    = flag.Duration("poll-interval", 0, "polling interval (overrides PROCESS_POLL_INTERVAL, default 30s)")
	)
	flag.Parse()

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

	authorityID := firstNonEmpty(*authority, os.Getenv("POOL_AUTHORITY"), "redemption-processor")
	internalKey := mustHex32(firstNonEmpty(*poolAddrHex, os.Getenv("POOL_INTERNAL_KEY")), "pool internal key")

	network := &chaincfg.MainNetParams
	if *testnet {
		network = &chaincfg.TestNet3Params
	}

	// A production deployment shares one pool.Pool instance (and its
	// commitment tree / nullifier set) between deposit-watcher and
	// redemption-processor through a persistent backing store; until that
	// store exists each binary initializes its own pool from the same
	// authority/key parameters so standalone runs are self-consistent.
	p := pool.New()
	if err := p.Initialize(authorityID, internalKey, *minDeposit, *maxDeposit, custody.RequiredConfirmations, time.Now()); err != nil {
		log.Fatalf("pool.Initialize: %v", err)
	}
	poolAddr := &custody.DepositAddress{OutputKey: internalKey, InternalKey: internalKey}
	queue := lifecycle.NewRedemptionQueue(p, oracle, coordinator, poolAddr, authorityID)

	pollInterval := *interval
	if pollInterval == 0 {
		pollInterval = 30 * time.Second
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	log.Printf("redemption-processor polling every %s against %s", pollInterval, url)
	for {
		select {
		case <-ctx.Done():
			log.Print("shutting down redemption-processor")
			return
		case <-ticker.C:
			processPending(p, queue, network, oracle.Now())
		}
	}
}

// processPending drives one pass over every queued redemption,
// resolving each request's destination address to a scriptPubKey before
// handing it to RedemptionQueue.Process.
func processPending(p *pool.Pool, queue *lifecycle.RedemptionQueue, network *chaincfg.Params, now time.Time) {
	for _, requestID := range queue.Pending() {
		req, ok := p.Redemption(requestID)
		if !ok {
			continue
		}
		destScript, err := payoutScript(req.BtcAddress, network)
		if err != nil {
			log.Printf("redemption %x: invalid payout address %q: %v", requestID, req.BtcAddress, err)
			continue
		}
		if err := queue.Process(requestID, destScript, now); err != nil {
			log.Printf("redemption %x: %v", requestID, err)
		}
	}
}

func payoutScript(address string, network *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, network)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
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
