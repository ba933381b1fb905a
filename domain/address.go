package domain

import (
	"fmt"
	"strings"

	"github.com/tonkeeper/tongo"
)

var (
	ErrorInvalidAddress = fmt.Errorf("invalid address")
)

// Address is a chain account in its user-friendly form.
type Address string

// ParseAddress accepts a user-friendly (base64url) account address.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if _, err := tongo.AccountIDFromBase64Url(raw); err != nil {
		return "", fmt.Errorf("%w: %q", ErrorInvalidAddress, raw)
	}
	return Address(raw), nil
}

func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Address) String() string {
	return string(a)
}
