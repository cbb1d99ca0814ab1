package distribution

import (
	"strings"

	"github.com/aristath/distributor/internal/modules/allocation"
	"golang.org/x/crypto/sha3"
)

// ChecksumAddress returns the EIP-55 mixed-case form of addr. Input that is
// not a well-formed address is returned unchanged.
func ChecksumAddress(addr string) string {
	normalized := "0x" + strings.ToLower(strings.TrimPrefix(strings.TrimSpace(addr), "0x"))
	if !allocation.IsValidAddress(normalized) {
		return addr
	}

	hexPart := normalized[2:]
	sum := keccak256([]byte(hexPart))

	out := []byte(hexPart)
	for i, ch := range out {
		if ch >= '0' && ch <= '9' {
			continue
		}
		nibble := sum[i/2] & 0x0f
		if i%2 == 0 {
			nibble = sum[i/2] >> 4
		}
		if nibble >= 8 {
			out[i] = ch - 'a' + 'A'
		}
	}

	return "0x" + string(out)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)
	return h.Sum(nil)
}
