package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"
)

// GenerateFingerprint produces a stable-looking device identifier from
// host attributes plus a random component. It identifies this install,
// not the hardware.
func GenerateFingerprint() string {
	hostname, _ := os.Hostname()
	seed := fmt.Sprintf("%s|%s|%s|%s", hostname, runtime.GOOS, runtime.GOARCH, uuid.NewString())
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:16])
}
