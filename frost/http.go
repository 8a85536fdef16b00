package frost

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
)

// Handlers exposes a signer node's Manager over the HTTP API spec §6
// defines for coordination between lifecycle processors and the signer
// cluster. Request/response shape and the writeJSON/writeJSONError
// helpers follow the certen validator pack's server.ProofHandlers style.
type Handlers struct {
	manager *Manager
}

// NewHandlers wraps manager for HTTP serving.
func NewHandlers(manager *Manager) *Handlers {
	return &Handlers{manager: manager}
}

// Register mounts all signer endpoints onto mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/info", h.handleInfo)
	mux.HandleFunc("/round1", h.handleRound1)
	mux.HandleFunc("/round2", h.handleRound2)
	mux.HandleFunc("/dkg/round1", h.handleDKGRound1)
	mux.HandleFunc("/dkg/round2", h.handleDKGRound2)
	mux.HandleFunc("/dkg/finalize", h.handleDKGFinalize)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	key := h.manager.KeyShare()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		SignerID:  uint32(h.manager.Identifier()),
		KeyLoaded: key != nil,
	})
}

func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	key := h.manager.KeyShare()
	if key == nil {
		writeJSONError(w, "no key share loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{
		SignerID:       uint32(key.Identifier),
		PublicKeyShare: hexEncode(key.VerifyingShare[:]),
		GroupPublicKey: hexEncode(key.GroupPublicKey[:]),
		Threshold:      key.Threshold,
		Total:          key.Total,
	})
}

func (h *Handlers) handleRound1(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req round1Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sessionID, err := hexDecode32(req.SessionID)
	if err != nil {
		writeJSONError(w, "invalid session_id", http.StatusBadRequest)
		return
	}
	sigHash, err := hexDecode32(req.SigHash)
	if err != nil {
		writeJSONError(w, "invalid sighash", http.StatusBadRequest)
		return
	}
	var tweak *[32]byte
	if req.Tweak != nil {
		t, err := hexDecode32(*req.Tweak)
		if err != nil {
			writeJSONError(w, "invalid tweak", http.StatusBadRequest)
			return
		}
		tweak = &t
	}

	commitment, err := h.manager.SignRound1(sessionID, sigHash, tweak)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, round1Response{
		Commitment:      hexEncode(append(append([]byte{}, commitment.Hiding[:]...), commitment.Binding[:]...)),
		SignerID:        uint32(h.manager.Identifier()),
		FrostIdentifier: hexEncode(h.manager.Identifier().scalar().Bytes()),
	})
}

func (h *Handlers) handleRound2(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req round2Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sessionID, err := hexDecode32(req.SessionID)
	if err != nil {
		writeJSONError(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	commitments := make(map[Identifier]NonceCommitment, len(req.Commitments))
	for signerID, enc := range req.Commitments {
		id, ok := req.IdentifierMap[signerID]
		if !ok {
			writeJSONError(w, "missing identifier_map entry for "+signerID, http.StatusBadRequest)
			return
		}
		raw, err := hex.DecodeString(enc)
		if err != nil || len(raw) != 66 {
			writeJSONError(w, "invalid commitment encoding for "+signerID, http.StatusBadRequest)
			return
		}
		var c NonceCommitment
		copy(c.Hiding[:], raw[:33])
		copy(c.Binding[:], raw[33:])
		commitments[Identifier(id)] = c
	}

	share, err := h.manager.SignRound2(sessionID, commitments)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, round2Response{
		SignatureShare: hexEncode(share[:]),
		SignerID:       uint32(h.manager.Identifier()),
	})
}

func (h *Handlers) handleDKGRound1(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dkgRound1Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ceremonyID, err := hexDecode32(req.CeremonyID)
	if err != nil {
		writeJSONError(w, "invalid ceremony_id", http.StatusBadRequest)
		return
	}

	pkg, err := h.manager.DKGRound1(ceremonyID, req.Threshold, req.Total)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, dkgRound1Response{
		Package:  hexEncode(encodeRound1Package(pkg)),
		SignerID: uint32(h.manager.Identifier()),
	})
}

func (h *Handlers) handleDKGRound2(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dkgRound2Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ceremonyID, err := hexDecode32(req.CeremonyID)
	if err != nil {
		writeJSONError(w, "invalid ceremony_id", http.StatusBadRequest)
		return
	}

	packages, err := decodeRound1Packages(req.Round1Packages)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	shares, err := h.manager.DKGRound2(ceremonyID, packages)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	out := make(map[string]string, len(shares))
	for id, share := range shares {
		out[idKey(id)] = hexEncode(share[:])
	}
	writeJSON(w, http.StatusOK, dkgRound2Response{Packages: out, SignerID: uint32(h.manager.Identifier())})
}

func (h *Handlers) handleDKGFinalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dkgFinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ceremonyID, err := hexDecode32(req.CeremonyID)
	if err != nil {
		writeJSONError(w, "invalid ceremony_id", http.StatusBadRequest)
		return
	}

	round1Packages, err := decodeRound1Packages(req.Round1Packages)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	round2Shares := make(Round2Packages, len(req.Round2Packages))
	for idStr, enc := range req.Round2Packages {
		id, err := parseIDKey(idStr)
		if err != nil {
			writeJSONError(w, "invalid round2 identifier key", http.StatusBadRequest)
			return
		}
		share, err := hexDecode32(enc)
		if err != nil {
			writeJSONError(w, "invalid round2 share encoding", http.StatusBadRequest)
			return
		}
		round2Shares[id] = share
	}

	key, err := h.manager.DKGFinalize(ceremonyID, round1Packages, round2Shares)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, dkgFinalizeResponse{
		GroupPublicKey: hexEncode(key.GroupPublicKey[:]),
		Saved:          true,
		SignerID:       uint32(h.manager.Identifier()),
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
