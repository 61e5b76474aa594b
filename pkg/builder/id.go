package builder

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/kode4food/waypoint/pkg/api"
)

// NewRunID generates a unique run ID with a readable prefix
func NewRunID(prefix string) api.RunID {
	suffix := randomHex(6)
	if p := toKebabCase(prefix); p != "" {
		return api.RunID(p + "-" + suffix)
	}
	return api.RunID(suffix)
}

func randomHex(length int) string {
	bytes := make([]byte, (length+1)/2)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)[:length]
}
