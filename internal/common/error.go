package common

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds surfaced by the sync core. Per-item batch results carry the
// kind string, not the error value, so callers can report without unwrapping.
const (
	KindAuth      = "auth"
	KindNetwork   = "network"
	KindProtocol  = "protocol"
	KindNotFound  = "not_found"
	KindIO        = "io"
	KindCancelled = "cancelled"
	KindUnknown   = "unknown"
)

var (
	ErrAuth        = fmt.Errorf("authentication failed or token expired")
	ErrNetwork     = fmt.Errorf("network failure")
	ErrProtocol    = fmt.Errorf("malformed remote response")
	ErrNotFound    = fmt.Errorf("deck or version not found")
	ErrIO          = fmt.Errorf("local persistence failure")
	ErrCancelled   = fmt.Errorf("operation cancelled")
	ErrNotLoggedIn = fmt.Errorf("not logged in")
)

// Kind classifies err into one of the kind strings above.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth), errors.Is(err, ErrNotLoggedIn):
		return KindAuth
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrProtocol):
		return KindProtocol
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIO):
		return KindIO
	}

	return KindUnknown
}
