// Package apperr classifies worker-facing errors into the taxonomy of
// spec.md §7: transient, truncation, poison, desync, config, corrupt. Stage
// code wraps failures in the typed errors here instead of matching strings,
// so Classify never has to guess from an error's text.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist
	// (or is soft-deleted and the caller excluded soft-deleted rows).
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument flags a caller mistake (bad slug, bad status) —
	// never retried, never poisons an asset.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoWork is the claim-query's "nothing eligible" signal. It is not
	// a failure; callers treat it as "sleep and retry".
	ErrNoWork = errors.New("no eligible work")
)

// Category is the coarse bucket Classify assigns an error to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryTransient
	CategoryTruncation
	CategoryPoison
	CategoryDesync
	CategoryConfig
	CategoryCorrupt
)

func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryTruncation:
		return "truncation"
	case CategoryPoison:
		return "poison"
	case CategoryDesync:
		return "desync"
	case CategoryConfig:
		return "config"
	case CategoryCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// TruncatedError signals the frame extractor reached end-of-stream short of
// the source's reported duration (spec.md §4.5.1 "Completion check").
type TruncatedError struct {
	Expected, Observed float64
	HardwareDecode     bool
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("frame stream truncated: expected duration %.2fs, observed %.2fs", e.Expected, e.Observed)
}

// DesyncError signals the pixel/PTS pairing contract was violated: a PTS
// did not arrive within the pairing timeout (spec.md §4.5.1).
type DesyncError struct {
	WaitedSec float64
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("frame/PTS timeout: no PTS available within %.1fs of pixel bytes", e.WaitedSec)
}

// ConfigError is fatal for the whole worker process — it must exit non-zero
// immediately rather than degrade (spec.md §7, category 5).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Reason }

// CorruptSourceError flags a source file ffmpeg/the decoder could not read
// at all, distinct from a successful-but-truncated decode.
type CorruptSourceError struct {
	Path string
	Err  error
}

func (e *CorruptSourceError) Error() string {
	return fmt.Sprintf("cannot decode source %q: %v", e.Path, e.Err)
}
func (e *CorruptSourceError) Unwrap() error { return e.Err }

// PoisonError marks an asset that must not be reclaimed automatically
// again — retry_count already exceeded MAX_RETRIES when this was raised.
type PoisonError struct {
	Reason string
}

func (e *PoisonError) Error() string { return "poisoned: " + e.Reason }

// Classify inspects err for one of the typed errors above and returns its
// category. An error with none of these types is treated as transient: the
// default policy is "retry", never silent data loss and never an
// unexplained poison.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var trunc *TruncatedError
	var desync *DesyncError
	var cfg *ConfigError
	var corrupt *CorruptSourceError
	var poison *PoisonError
	switch {
	case errors.As(err, &trunc):
		return CategoryTruncation
	case errors.As(err, &desync):
		return CategoryDesync
	case errors.As(err, &cfg):
		return CategoryConfig
	case errors.As(err, &corrupt):
		return CategoryCorrupt
	case errors.As(err, &poison):
		return CategoryPoison
	default:
		return CategoryTransient
	}
}

// Retryable reports whether the worker should let this asset return to the
// queue (true) or must poison it / exit the process (false, handled by the
// caller per category).
func Retryable(err error) bool {
	switch Classify(err) {
	case CategoryConfig, CategoryPoison:
		return false
	default:
		return true
	}
}
