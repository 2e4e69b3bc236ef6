package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// Kind classifies why a probe could not tell whether a profile exists.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindConnection        Kind = "connection"
	KindUnexpectedStatus  Kind = "unexpected_status"
	KindMalformedResponse Kind = "malformed_response"
	KindInvalidRequest    Kind = "invalid_request"
)

// Error is carried inside an Outcome; probes never return it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a probe Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}

// classify maps a transport error from http.Client.Do onto a Kind.
func classify(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var (
		dnsErr   *net.DNSError
		opErr    *net.OpError
		certErr  *tls.CertificateVerificationError
		recErr   tls.RecordHeaderError
		authErr  x509.UnknownAuthorityError
		hostErr  x509.HostnameError
		invalidC x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.As(err, &certErr),
		errors.As(err, &recErr),
		errors.As(err, &authErr),
		errors.As(err, &hostErr),
		errors.As(err, &invalidC),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, context.Canceled):
		return &Error{Kind: KindConnection, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		// Broken HTTP framing ends up here.
		return &Error{Kind: KindMalformedResponse, Err: err}
	}
	return &Error{Kind: KindConnection, Err: err}
}
