// Package ulid generates prefixed ULID identifiers for Verdant.
// ULIDs are lexicographically sortable by creation time, which keeps
// locally minted ids well ordered in the store without coordination.
package ulid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identifier prefixes
const (
	// PrefixTemp marks a locally generated placeholder identifier for an
	// entity that has not yet been acknowledged by the remote service.
	// Temporary identifiers are never sent to the server as entity keys.
	PrefixTemp = "temp"

	// PrefixRequest marks an HTTP request identifier
	PrefixRequest = "req"

	// PrefixSweep marks a sweep pass identifier
	PrefixSweep = "swp"

	// PrefixSetting marks a settings entry identifier
	PrefixSetting = "set"

	// PrefixSeparator separates the prefix from the ULID
	PrefixSeparator = "_"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newID(prefix string) string {
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyLock.Unlock()
	return prefix + PrefixSeparator + id.String()
}

// TempID generates a new temporary identifier for a locally created entity
func TempID() string {
	return newID(PrefixTemp)
}

// IsTempID reports whether id carries the reserved temporary marker
func IsTempID(id string) bool {
	return strings.HasPrefix(id, PrefixTemp+PrefixSeparator)
}

// RequestID generates a new HTTP request identifier
func RequestID() string {
	return newID(PrefixRequest)
}

// SweepID generates a new sweep pass identifier
func SweepID() string {
	return newID(PrefixSweep)
}

// SettingID generates a new settings entry identifier
func SettingID() string {
	return newID(PrefixSetting)
}
