package merge

import (
	"errors"
	"fmt"
)

// ErrNoMatch indicates one source produced no acceptable candidate for
// one entity. Recoverable; the orchestrator moves on to the next source.
var ErrNoMatch = errors.New("no matching candidate")

// ErrAborted indicates the user aborted during interactive selection.
// Fatal to the run; entities already processed keep their results.
var ErrAborted = errors.New("aborted by user")

// NoMetadataError indicates every configured source failed to produce a
// match for one entity. Recoverable; the entity is skipped.
type NoMetadataError struct {
	EntityID string
}

func (e *NoMetadataError) Error() string {
	return fmt.Sprintf("no metadata found for entity %s", e.EntityID)
}

// ConfigError indicates an invalid merge configuration. Fatal before any
// entity is processed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid merge configuration: " + e.Reason
}
