package api

import (
	"errors"
	"net/http"

	"github.com/nicolasssh/cosplaiii/internal/common"
)

// The transport sentinels reuse the shared values so callers can match
// with errors.Is at any layer without importing this package.
var (
	ErrUnavailable  = common.ErrUnavailable
	ErrUnauthorized = common.ErrUnauthorized
	ErrNotFound     = common.ErrNotFound
	ErrBadRequest   = errors.New("bad request")
)

// mapStatus converts a non-2xx HTTP status into one of the package
// sentinels so callers can branch with errors.Is without inspecting
// transport details.
func mapStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return ErrUnavailable
	case code >= 400:
		return ErrBadRequest
	default:
		return common.ErrInternal
	}
}
