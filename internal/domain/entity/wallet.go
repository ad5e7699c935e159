package entity

import (
	"regexp"
	"strings"
)

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Wallet is an address the service reports on. Chain and Label are optional;
// an empty Chain means "use the caller's default".
type Wallet struct {
	Address string `json:"address"`
	Chain   string `json:"chain,omitempty"`
	Label   string `json:"label,omitempty"`
}

// ValidateWalletAddress checks the 0x + 40 hex format.
func ValidateWalletAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return &InvalidInputError{Field: "walletAddress", Reason: "wallet address is required"}
	}
	if !walletAddressPattern.MatchString(address) {
		return &InvalidInputError{Field: "walletAddress", Reason: "invalid wallet address format"}
	}
	return nil
}
