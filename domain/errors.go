package domain

import (
	"errors"
	"fmt"
)

var (
	ErrorTransientNetwork    = fmt.Errorf("transient network error")
	ErrorInvalidState        = fmt.Errorf("invalid state")
	ErrorProtocolUnavailable = fmt.Errorf("protocol unavailable")
	ErrorUnknownProtocol     = fmt.Errorf("unknown protocol")
	ErrorStaleQuote          = fmt.Errorf("quote is stale")
	ErrorQuoteUnavailable    = fmt.Errorf("no quote available")
	ErrorCancelled           = fmt.Errorf("cancelled")
	ErrorConflictingSupply   = fmt.Errorf("more than one yield component declares total supplied")
	ErrorMalformedResponse   = fmt.Errorf("malformed response")
)

// ProtocolError ties an adapter failure to the protocol it came from.
type ProtocolError struct {
	Protocol ProtocolID
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: %v", e.Protocol, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is makes every adapter failure match ErrorProtocolUnavailable.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrorProtocolUnavailable
}

// IsRetryable reports whether err is worth retrying after a short pause.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrorTransientNetwork) || errors.Is(err, ErrorProtocolUnavailable)
}
