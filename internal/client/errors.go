package client

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a refused or unreachable endpoint.
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates the server at Endpoint could not be reached.
type ConnectionError struct {
	Endpoint string
	Type     ConnectionErrorType
	Reason   error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("%s: cannot reach switchyard at %s: %v", e.Type, e.Endpoint, e.Reason)
	if e.Type == ConnectionErrorNetwork {
		msg += "\n\nIs the server running? Start it with: switchyard serve"
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError wraps err in a ConnectionError of the matching
// type. A nil err returns nil.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	ce := &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnknown, Reason: err}
	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		ce.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		ce.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		ce.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		ce.Type = ConnectionErrorNetwork
	}
	return ce
}

func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isNetworkError(errStr string) bool {
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
