package frost

import (
	"sync"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// DefaultSessionTTL is how long a signing session survives without a
// round-2 call before it is treated as abandoned and deleted, per
// spec §4.F's "session state per signer is short-lived" rule.
const DefaultSessionTTL = 2 * time.Minute

// Manager is one signer node's process-wide state: at most one completed
// DKG key share, any number of in-flight DKG ceremonies, and any number of
// in-flight signing sessions. Mirrors threshold.ThresholdManager's
// singleton-map-guarded-by-one-RWMutex shape.
type Manager struct {
	mu sync.RWMutex

	self Identifier

	keyShare *KeyShare

	ceremonies map[[32]byte]*ceremony
	sessions   map[[32]byte]*signSession

	sessionTTL time.Duration
}

// NewManager returns a Manager for signer node self. The node holds no key
// share until a DKG ceremony completes against it.
func NewManager(self Identifier) *Manager {
	return &Manager{
		self:       self,
		ceremonies: make(map[[32]byte]*ceremony),
		sessions:   make(map[[32]byte]*signSession),
		sessionTTL: DefaultSessionTTL,
	}
}

// KeyShare returns this node's key share, or nil if DKG has not completed.
func (m *Manager) KeyShare() *KeyShare {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keyShare
}

// Identifier returns this node's FROST identifier.
func (m *Manager) Identifier() Identifier { return m.self }

// DKGRound1 starts or resumes a ceremony and returns this node's round-1
// package to broadcast to every other participant (total-1 of them).
func (m *Manager) DKGRound1(ceremonyID [32]byte, threshold, total int) (Round1Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ceremonies[ceremonyID]; ok {
		return Round1Package{}, poolerr.ErrAlreadyInitialized
	}

	ce, pkg, err := newCeremony(m.self, threshold, total)
	if err != nil {
		return Round1Package{}, err
	}
	m.ceremonies[ceremonyID] = ce
	return pkg, nil
}

// DKGRound2 verifies every peer's round-1 package and returns the pairwise
// secret shares this node computed for each of them.
func (m *Manager) DKGRound2(ceremonyID [32]byte, round1Packages map[Identifier]Round1Package) (Round2Packages, error) {
	m.mu.RLock()
	ce, ok := m.ceremonies[ceremonyID]
	m.mu.RUnlock()
	if !ok {
		return nil, poolerr.ErrNotInitialized
	}
	return ce.processRound1(round1Packages)
}

// DKGFinalize combines round-1 commitments and the round-2 shares
// addressed to this node into its KeyShare, storing it as the node's
// signing key. The ceremony is removed from memory afterward — DKG state
// has no further use once the share is derived.
func (m *Manager) DKGFinalize(ceremonyID [32]byte, round1Packages map[Identifier]Round1Package, round2Shares Round2Packages) (*KeyShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ce, ok := m.ceremonies[ceremonyID]
	if !ok {
		return nil, poolerr.ErrNotInitialized
	}

	key, err := ce.finalize(round1Packages, round2Shares)
	if err != nil {
		return nil, err
	}

	delete(m.ceremonies, ceremonyID)
	m.keyShare = key
	return key, nil
}

// SignRound1 begins a signing session and returns this node's nonce
// commitments. session_id binds round 1 and round 2 together; calling it
// twice for the same session_id is rejected (spec property 7, session
// binding) since a session's nonces must never be reused.
func (m *Manager) SignRound1(sessionID, sigHash [32]byte, tweak *[32]byte) (NonceCommitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reapExpiredLocked()

	if _, ok := m.sessions[sessionID]; ok {
		return NonceCommitment{}, poolerr.ErrAlreadyInitialized
	}

	s, err := newSignSession(sessionID, sigHash, tweak)
	if err != nil {
		return NonceCommitment{}, err
	}
	m.sessions[sessionID] = s
	return s.commitment, nil
}

// SignRound2 computes this node's signature share, given the round-1
// commitments of every signer in the session (including this node's own),
// then deletes the session.
func (m *Manager) SignRound2(sessionID [32]byte, commitments map[Identifier]NonceCommitment) ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reapExpiredLocked()

	s, ok := m.sessions[sessionID]
	if !ok {
		return [32]byte{}, poolerr.ErrNotInitialized
	}
	if m.keyShare == nil {
		return [32]byte{}, poolerr.ErrNotInitialized
	}
	if commitments[m.self] != s.commitment {
		return [32]byte{}, poolerr.ErrUnauthorized
	}

	signerSet := make([]Identifier, 0, len(commitments))
	for id := range commitments {
		signerSet = append(signerSet, id)
	}

	share, err := s.round2(m.self, commitments, m.keyShare, signerSet)
	delete(m.sessions, sessionID)
	if err != nil {
		return [32]byte{}, err
	}
	return share, nil
}

// reapExpiredLocked drops sessions older than sessionTTL. Caller must hold
// m.mu for writing.
func (m *Manager) reapExpiredLocked() {
	cutoff := time.Now().Add(-m.sessionTTL)
	for id, s := range m.sessions {
		if s.createdAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
