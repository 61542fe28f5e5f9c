package acl

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

// Fingerprint derives a stable identifier for a principal set, independent
// of ordering. It keys cached decisions.
func Fingerprint(principals []magpie.Principal) string {
	parts := make([]string, len(principals))
	for i, p := range principals {
		parts[i] = string(p.Kind) + ":" + p.Name
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
