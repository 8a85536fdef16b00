package frost

import "encoding/hex"

// Wire types for the signer-node HTTP API (spec §6's FROST signer HTTP API
// table). JSON field names follow the table verbatim.

type healthResponse struct {
	Status    string `json:"status"`
	SignerID  uint32 `json:"signer_id"`
	KeyLoaded bool   `json:"key_loaded"`
}

type infoResponse struct {
	SignerID        uint32 `json:"signer_id"`
	PublicKeyShare  string `json:"public_key_share"`
	GroupPublicKey  string `json:"group_public_key"`
	Threshold       int    `json:"threshold"`
	Total           int    `json:"total"`
}

type round1Request struct {
	SessionID string  `json:"session_id"`
	SigHash   string  `json:"sighash"`
	Tweak     *string `json:"tweak,omitempty"`
}

type round1Response struct {
	Commitment      string `json:"commitment"`
	SignerID        uint32 `json:"signer_id"`
	FrostIdentifier string `json:"frost_identifier"`
}

type round2Request struct {
	SessionID      string            `json:"session_id"`
	SigHash        string            `json:"sighash"`
	Tweak          *string           `json:"tweak,omitempty"`
	Commitments    map[string]string `json:"commitments"`     // signer_id -> hex(Hiding||Binding)
	IdentifierMap  map[string]uint32 `json:"identifier_map"`   // signer_id -> frost identifier
}

type round2Response struct {
	SignatureShare string `json:"signature_share"`
	SignerID       uint32 `json:"signer_id"`
}

type dkgRound1Request struct {
	CeremonyID string `json:"ceremony_id"`
	Threshold  int    `json:"threshold"`
	Total      int    `json:"total"`
}

type dkgRound1Response struct {
	Package  string `json:"package"`
	SignerID uint32 `json:"signer_id"`
}

type dkgRound2Request struct {
	CeremonyID     string            `json:"ceremony_id"`
	Round1Packages map[string]string `json:"round1_packages"` // signer_id -> hex package
}

type dkgRound2Response struct {
	Packages map[string]string `json:"packages"` // target signer_id -> hex share
	SignerID uint32             `json:"signer_id"`
}

type dkgFinalizeRequest struct {
	CeremonyID     string            `json:"ceremony_id"`
	Round1Packages map[string]string `json:"round1_packages"`
	Round2Packages map[string]string `json:"round2_packages"` // addressed to this signer
}

type dkgFinalizeResponse struct {
	GroupPublicKey string `json:"group_public_key"`
	Saved          bool   `json:"saved"`
	SignerID       uint32 `json:"signer_id"`
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func hexDecode32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, errDecompress
	}
	copy(out[:], b)
	return out, nil
}

func hexDecode66(s string) ([66]byte, error) {
	var out [66]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 66 {
		return out, errDecompress
	}
	copy(out[:], b)
	return out, nil
}

func hexDecode33(s string) ([33]byte, error) {
	var out [33]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 33 {
		return out, errDecompress
	}
	copy(out[:], b)
	return out, nil
}
