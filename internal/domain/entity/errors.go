package entity

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable category surfaced to API and CLI consumers.
type ErrorKind string

const (
	KindConfiguration     ErrorKind = "configuration"
	KindUnsupportedChain  ErrorKind = "unsupported_chain"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindNoPositions       ErrorKind = "no_positions"
	KindRenderFailed      ErrorKind = "render_failed"
	KindPersistenceFailed ErrorKind = "persistence_failed"
	KindNotifyFailed      ErrorKind = "notify_failed"
	KindInternal          ErrorKind = "internal"
)

// ErrRateLimited marks upstream throttling (HTTP 429 or an RPC limit error).
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// UnsupportedChainError is returned for chain ids missing from the registry.
type UnsupportedChainError struct {
	ChainID string
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("unsupported chain: %q", e.ChainID)
}

func (e *UnsupportedChainError) Kind() ErrorKind { return KindUnsupportedChain }

// NoPositionsFoundError is the expected outcome for a wallet without Aave activity.
type NoPositionsFoundError struct {
	WalletAddress string
	Chain         string
	Mode          ReportMode
}

func (e *NoPositionsFoundError) Error() string {
	return fmt.Sprintf("no Aave positions found for %s on %s", e.WalletAddress, e.Chain)
}

func (e *NoPositionsFoundError) Kind() ErrorKind { return KindNoPositions }

// ConfigurationError covers invalid configuration and missing credentials.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Kind() ErrorKind { return KindConfiguration }

// InvalidInputError is a malformed caller argument such as a wallet address.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Kind() ErrorKind { return KindInvalidInput }

// RenderError wraps a card rendering failure so it is never confused with a pipeline failure.
type RenderError struct {
	Cause error
}

func (e *RenderError) Error() string { return "render card: " + e.Cause.Error() }

func (e *RenderError) Unwrap() error { return e.Cause }

func (e *RenderError) Kind() ErrorKind { return KindRenderFailed }

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Cause) }

func (e *PersistenceError) Unwrap() error { return e.Cause }

func (e *PersistenceError) Kind() ErrorKind { return KindPersistenceFailed }

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first typed error in the chain, or KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}
