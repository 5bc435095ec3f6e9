// Package usecase orchestrates the detector, reference layer, and
// crossing tracker into sessions: init/advance/reset/track and the
// config-update and inspection contracts the outer layers call.
package usecase

import "errors"

// ErrNotInitialized is returned when a session handle is unknown to the
// Manager (never created, or already closed).
var ErrNotInitialized = errors.New("usecase: session not initialized")

// ErrIndexOutOfRange is returned when GetReferenceState is asked for a
// bar index with no retained snapshot (future index, or one advanced
// without include_snapshots set).
var ErrIndexOutOfRange = errors.New("usecase: bar index out of range")

// ErrSessionUnusable marks a session whose detector returned an internal
// error mid-advance; Advance and GetReferenceState fail with it until
// Reset. The other session calls do not check this state.
var ErrSessionUnusable = errors.New("usecase: session unusable")
