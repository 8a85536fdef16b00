package frost

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// encodeRound1Package serializes a DKG round-1 package to bytes for
// transport as a hex string over the wire API:
// identifier(4) || count(1) || commitments(count*33) || pop_r(33) || pop_mu(32).
func encodeRound1Package(pkg Round1Package) []byte {
	out := make([]byte, 0, 4+1+33*len(pkg.Commitments)+33+32)
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], uint32(pkg.Identifier))
	out = append(out, idBuf[:]...)
	out = append(out, byte(len(pkg.Commitments)))
	for _, c := range pkg.Commitments {
		out = append(out, c[:]...)
	}
	out = append(out, pkg.PopR[:]...)
	out = append(out, pkg.PopMu[:]...)
	return out
}

func decodeRound1Package(b []byte) (Round1Package, error) {
	if len(b) < 4+1+33+32 {
		return Round1Package{}, errDecompress
	}
	id := Identifier(binary.BigEndian.Uint32(b[:4]))
	count := int(b[4])
	offset := 5
	if len(b) != offset+count*33+33+32 {
		return Round1Package{}, errDecompress
	}

	commitments := make([][33]byte, count)
	for i := 0; i < count; i++ {
		copy(commitments[i][:], b[offset:offset+33])
		offset += 33
	}

	var popR [33]byte
	copy(popR[:], b[offset:offset+33])
	offset += 33
	var popMu [32]byte
	copy(popMu[:], b[offset:offset+32])

	return Round1Package{Identifier: id, Commitments: commitments, PopR: popR, PopMu: popMu}, nil
}

func decodeRound1Packages(encoded map[string]string) (map[Identifier]Round1Package, error) {
	out := make(map[Identifier]Round1Package, len(encoded))
	for idStr, enc := range encoded {
		id, err := parseIDKey(idStr)
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(enc)
		if err != nil {
			return nil, err
		}
		pkg, err := decodeRound1Package(raw)
		if err != nil {
			return nil, fmt.Errorf("signer %s: %w", idStr, err)
		}
		out[id] = pkg
	}
	return out, nil
}

func idKey(id Identifier) string { return strconv.FormatUint(uint64(id), 10) }

func parseIDKey(s string) (Identifier, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return Identifier(v), nil
}

