package pool

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// Dispatch routes a single leading instruction-discriminator byte plus its
// payload to the matching Pool operation, mirroring
// zk.zkVerifyPrecompile.Run's op := input[0]; data := input[1:] switch.
// Unlike the EVM precompile this wraps, there is no gas metering or
// caller/readOnly plumbing here — callers that need those semantics (an
// eventual settlement-chain host) wrap Dispatch rather than the other way
// around.
//
// Payload layouts are fixed-width little-endian, one concrete shape per
// instruction; a caller that already has typed arguments should call the
// corresponding exported method directly (Initialize, Claim, ...) instead
// of paying the encode/decode cost Dispatch exists for.
func (p *Pool) Dispatch(instruction uint8, payload []byte, now time.Time) ([]byte, error) {
	switch instruction {
	case InstrInitCommitmentTree:
		return nil, p.dispatchInitCommitmentTree(payload, now)
	case InstrSetPaused:
		return nil, p.dispatchSetPaused(payload, now)
	case InstrCompleteRedemption:
		return nil, p.dispatchCompleteRedemption(payload, now)
	case InstrAnnounceStealth:
		return nil, p.dispatchAnnounceStealth(payload, now)
	case InstrAddDemoCommitment:
		return p.dispatchAddDemoCommitment(payload, now)
	default:
		return nil, fmt.Errorf("pool: instruction %d requires a typed call, not Dispatch: %w", instruction, poolerr.ErrInvalidAccountData)
	}
}

// dispatchInitCommitmentTree payload: authority_len(1) || authority.
func (p *Pool) dispatchInitCommitmentTree(payload []byte, now time.Time) error {
	if len(payload) < 1 {
		return poolerr.ErrInvalidAccountData
	}
	n := int(payload[0])
	if len(payload) < 1+n {
		return poolerr.ErrInvalidAccountData
	}
	authority := string(payload[1 : 1+n])
	return p.InitCommitmentTree(authority, now)
}

// dispatchSetPaused payload: authority_len(1) || authority || paused(1).
func (p *Pool) dispatchSetPaused(payload []byte, now time.Time) error {
	if len(payload) < 2 {
		return poolerr.ErrInvalidAccountData
	}
	n := int(payload[0])
	if len(payload) < 1+n+1 {
		return poolerr.ErrInvalidAccountData
	}
	authority := string(payload[1 : 1+n])
	paused := payload[1+n] != 0
	return p.SetPaused(authority, paused, now)
}

// dispatchCompleteRedemption payload:
// request_id(32) || authority_len(1) || authority || txid_len(1) || txid.
func (p *Pool) dispatchCompleteRedemption(payload []byte, now time.Time) error {
	if len(payload) < 34 {
		return poolerr.ErrInvalidAccountData
	}
	var requestID [32]byte
	copy(requestID[:], payload[:32])
	offset := 32
	n := int(payload[offset])
	offset++
	if len(payload) < offset+n+1 {
		return poolerr.ErrInvalidAccountData
	}
	authority := string(payload[offset : offset+n])
	offset += n
	m := int(payload[offset])
	offset++
	if len(payload) < offset+m {
		return poolerr.ErrInvalidAccountData
	}
	btcTxid := string(payload[offset : offset+m])
	return p.CompleteRedemption(authority, requestID, btcTxid, now)
}

// dispatchAnnounceStealth payload matches the original's 73-byte layout:
// ephemeral_pub(33) || amount_sats(8, little-endian) || commitment(32).
// leaf_index is not yet known at announce time off-chain, so Dispatch
// accepts 0 and leaves LeafIndex population to a later pool-side insert;
// direct callers pass the real index via AnnounceStealth.
func (p *Pool) dispatchAnnounceStealth(payload []byte, now time.Time) error {
	if len(payload) < 73 {
		return poolerr.ErrInvalidAccountData
	}
	var ephemeralPub [33]byte
	copy(ephemeralPub[:], payload[:33])
	amountSats := binary.LittleEndian.Uint64(payload[33:41])
	var commitment [32]byte
	copy(commitment[:], payload[41:73])
	return p.AnnounceStealth(ephemeralPub, amountSats, commitment, 0, now)
}

// dispatchAddDemoCommitment payload: secret(32).
func (p *Pool) dispatchAddDemoCommitment(payload []byte, now time.Time) ([]byte, error) {
	if len(payload) < 32 {
		return nil, poolerr.ErrInvalidAccountData
	}
	var secret [32]byte
	copy(secret[:], payload[:32])
	_, commitment, err := p.AddDemoCommitment(secret, now)
	if err != nil {
		return nil, err
	}
	return commitment[:], nil
}
