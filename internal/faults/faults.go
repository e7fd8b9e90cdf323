// Package faults defines the error taxonomy shared by the import pipeline
// and the web layer. Handlers classify failures by sentinel so a capacity
// problem suggests freeing space while a vanished target suggests
// reconnecting hardware.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad caller input: malformed IDs, missing fields,
	// non-ISO uploads.
	ErrValidation = errors.New("validation error")
	// ErrAccess marks an unreachable, unwritable, or structurally corrupt
	// target directory.
	ErrAccess = errors.New("access error")
	// ErrCapacity marks insufficient free space, up front or mid-batch.
	ErrCapacity = errors.New("capacity error")
	// ErrCollision marks an existing destination file without overwrite.
	ErrCollision = errors.New("collision error")
	// ErrDeviceGone marks a target that disappeared during an import,
	// typically unplugged removable media.
	ErrDeviceGone = errors.New("device gone")
	// ErrExternalTool marks a failed shell-out or upstream HTTP call.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound marks a missing game, entry, or art candidate.
	ErrNotFound = errors.New("not found")
)

// Wrap tags an error with a sentinel marker and stage context so callers can
// classify it with errors.Is while keeping a readable message.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
