package frost

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// Coordinator is the coordinator-side Signer implementation the redemption
// processor calls: it drives the two-round protocol across a cluster of
// signer-node HTTP endpoints and combines the resulting shares. Grounded
// on bridge.BridgeSigner's RequestSignature — generate a session ID,
// fan out, collect responses — adapted from single-process simulation to
// real HTTP calls.
type Coordinator struct {
	SignerURLs     []string // index i corresponds to Identifier(i+1)
	Threshold      int
	GroupPublicKey [33]byte

	Client  *http.Client
	Timeout time.Duration
}

// NewCoordinator constructs a Coordinator over signerURLs, one per signer
// node, identified 1..n in URL order.
func NewCoordinator(signerURLs []string, threshold int, groupPublicKey [33]byte) *Coordinator {
	return &Coordinator{
		SignerURLs:     signerURLs,
		Threshold:      threshold,
		GroupPublicKey: groupPublicKey,
		Client:         &http.Client{Timeout: 30 * time.Second},
		Timeout:        30 * time.Second,
	}
}

func (c *Coordinator) PublicKey() [32]byte {
	p, err := decodePoint(c.GroupPublicKey)
	if err != nil {
		return [32]byte{}
	}
	return xOnly(p)
}

func (c *Coordinator) Sign(sigHash [32]byte) ([64]byte, error) {
	return c.sign(sigHash, nil)
}

func (c *Coordinator) SignTweaked(sigHash [32]byte, tweak [32]byte) ([64]byte, error) {
	return c.sign(sigHash, &tweak)
}

func (c *Coordinator) sign(sigHash [32]byte, tweak *[32]byte) ([64]byte, error) {
	if len(c.SignerURLs) < c.Threshold {
		return [64]byte{}, poolerr.ErrInvalidEpoch
	}

	sessionData := append(append([]byte{}, sigHash[:]...), []byte(fmt.Sprintf("%d", time.Now().UnixNano()))...)
	sessionID := sha256.Sum256(sessionData)

	// Round 1: collect commitments from the first Threshold signers.
	commitments := make(map[Identifier]NonceCommitment, c.Threshold)
	for i := 0; i < c.Threshold; i++ {
		id := Identifier(i + 1)
		commitment, err := c.callRound1(c.SignerURLs[i], sessionID, sigHash, tweak)
		if err != nil {
			return [64]byte{}, fmt.Errorf("signer %d round1: %w", id, err)
		}
		commitments[id] = commitment
	}

	// Round 2: request each participating signer's share.
	shares := make(map[Identifier][32]byte, c.Threshold)
	for i := 0; i < c.Threshold; i++ {
		id := Identifier(i + 1)
		share, err := c.callRound2(c.SignerURLs[i], sessionID, sigHash, tweak, commitments)
		if err != nil {
			return [64]byte{}, fmt.Errorf("signer %d round2: %w", id, err)
		}
		shares[id] = share
	}

	sig, _, err := CombineSignatureShares(sigHash, tweak, commitments, shares, c.GroupPublicKey)
	return sig, err
}

func (c *Coordinator) callRound1(url string, sessionID, sigHash [32]byte, tweak *[32]byte) (NonceCommitment, error) {
	req := round1Request{SessionID: hexEncode(sessionID[:]), SigHash: hexEncode(sigHash[:])}
	if tweak != nil {
		t := hexEncode(tweak[:])
		req.Tweak = &t
	}

	var resp round1Response
	if err := c.postJSON(url+"/round1", req, &resp); err != nil {
		return NonceCommitment{}, err
	}

	raw, err := decodeHexPair(resp.Commitment)
	if err != nil {
		return NonceCommitment{}, err
	}
	return raw, nil
}

func (c *Coordinator) callRound2(url string, sessionID, sigHash [32]byte, tweak *[32]byte, commitments map[Identifier]NonceCommitment) ([32]byte, error) {
	req := round2Request{
		SessionID:     hexEncode(sessionID[:]),
		SigHash:       hexEncode(sigHash[:]),
		Commitments:   make(map[string]string, len(commitments)),
		IdentifierMap: make(map[string]uint32, len(commitments)),
	}
	if tweak != nil {
		t := hexEncode(tweak[:])
		req.Tweak = &t
	}
	for id, c2 := range commitments {
		key := idKey(id)
		req.Commitments[key] = hexEncode(append(append([]byte{}, c2.Hiding[:]...), c2.Binding[:]...))
		req.IdentifierMap[key] = uint32(id)
	}

	var resp round2Response
	if err := c.postJSON(url+"/round2", req, &resp); err != nil {
		return [32]byte{}, err
	}
	return hexDecode32(resp.SignatureShare)
}

func (c *Coordinator) postJSON(url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.Client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signer returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeHexPair(s string) (NonceCommitment, error) {
	raw, err := hexDecode66(s)
	if err != nil {
		return NonceCommitment{}, err
	}
	var c NonceCommitment
	copy(c.Hiding[:], raw[:33])
	copy(c.Binding[:], raw[33:])
	return c, nil
}
