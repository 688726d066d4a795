package gateway

import (
	"errors"
	"fmt"
	"net"

	"github.com/valyala/fasthttp"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindHTTP       Kind = "http"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindEmptyToken Kind = "empty_token"
	KindDecode     Kind = "decode"
)

// Error is returned by every Client call that did not produce a usable answer.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a gateway *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == kind
}

func transportError(op string, errs []error) *Error {
	err := errors.Join(errs...)
	kind := KindNetwork
	for _, e := range errs {
		var netErr net.Error
		if errors.Is(e, fasthttp.ErrTimeout) || errors.Is(e, fasthttp.ErrDialTimeout) ||
			(errors.As(e, &netErr) && netErr.Timeout()) {
			kind = KindTimeout
			break
		}
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
