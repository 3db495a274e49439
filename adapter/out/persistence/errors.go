// Package persistence provides Postgres adapters implementing the
// outbound store ports.
package persistence

import (
	"context"
	"errors"
	"net"
	"syscall"

	"triage_server/pkg/svcerr"
)

// wrapDBError maps database failures onto the svcerr taxonomy so the
// worker can distinguish retryable outages from terminal faults.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return svcerr.Timeout(op, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return svcerr.ConnRefused(op, err)
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return svcerr.ConnReset(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return svcerr.Timeout(op, err)
		}
		return svcerr.ConnReset(op, err)
	}
	return svcerr.Wrap(svcerr.KindInternal, op, "database error", err)
}
