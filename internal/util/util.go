package util

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// Checksum returns the hex sha1 of a deck payload, used to record what was
// imported into the local collection.
func Checksum(data []byte) string {
	hasher := sha1.New()
	hasher.Write(data)

	return hex.EncodeToString(hasher.Sum(nil))
}

// CompareVersions orders two version tokens. Dotted numeric tokens ("1.10"
// vs "1.9") compare segment by segment; anything non-numeric falls back to
// plain string ordering. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}

	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) || i < len(bs); i++ {
		av, aok := segment(as, i)
		bv, bok := segment(bs, i)
		if !aok || !bok {
			return strings.Compare(a, b)
		}

		if av != bv {
			if av < bv {
				return -1
			}

			return 1
		}
	}

	return 0
}

func segment(parts []string, i int) (int64, bool) {
	if i >= len(parts) {
		return 0, true
	}

	v, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
