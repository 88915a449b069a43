package bootstrap

import "context"

// Initializer is the contract implemented by every resource variant. Each
// variant owns its configuration validation rules, a non-mutating
// connectivity probe, and the procedure that opens its long-lived handle,
// and reports through the Status instance it exclusively owns.
//
// Lifecycle: ValidateConfiguration -> TestConnection -> Initialize, then
// Close on teardown. A failed Initializer is terminal for that attempt; a
// fresh attempt requires constructing a new one.
type Initializer interface {
	// Name returns the resource identifier used for registration, logging,
	// and performance measurement.
	Name() string

	// Status returns the Status instance owned by this initializer.
	Status() *Status

	// ValidateConfiguration checks the variant's configuration without
	// touching any external system. Every missing or invalid field is
	// reported as a distinct status error before returning, so callers get
	// the complete picture in one pass.
	ValidateConfiguration() error

	// TestConnection performs a non-mutating reachability probe. Any probe
	// artifact it creates is cleaned up before returning.
	TestConnection(ctx context.Context) error

	// Initialize opens the durable handle and records diagnostic facts into
	// the status data bag. A second call is safe: either a no-op or a clean
	// re-initialization, never a leak.
	Initialize(ctx context.Context) error

	// Close releases the live handle on every exit path. It is safe to call
	// when no handle was opened.
	Close(ctx context.Context) error
}
