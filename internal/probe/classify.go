package probe

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/whitebite/isolate-core/internal/domain"
)

// classify maps a probe error to the coarse class the scorer and UI group
// by: inspects both the error's Go type and a lowercase
// substring search of its message for the cases net's typed errors don't
// capture cleanly (TLS handshake failures in particular).
func classify(err error) domain.ErrorClass {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrorClassTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ErrorClassDNS
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return domain.ErrorClassTimeout
	case strings.Contains(msg, "dns"), strings.Contains(msg, "resolve"), strings.Contains(msg, "no such host"):
		return domain.ErrorClassDNS
	case strings.Contains(msg, "tls"), strings.Contains(msg, "ssl"), strings.Contains(msg, "certificate"):
		return domain.ErrorClassTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.ErrorClassTCP
	}

	if strings.Contains(msg, "http") || strings.Contains(msg, "status") {
		return domain.ErrorClassHTTP
	}

	return domain.ErrorClassUnknown
}
