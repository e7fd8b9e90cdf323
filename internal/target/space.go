package target

import "github.com/dustin/go-humanize"

const (
	// CDThresholdBytes splits imports between CD/ and DVD/: images under
	// 700 MiB fit pressed CD media and belong in CD/.
	CDThresholdBytes = 700 * 1024 * 1024

	// spaceBufferMinBytes is the floor of the safety margin kept free on
	// the target. FAT-class media burns space on metadata and bad-block
	// sparing that a plain size sum never sees.
	spaceBufferMinBytes = 500 * 1024 * 1024

	// spaceBufferRatio scales the margin with the payload.
	spaceBufferRatio = 0.05
)

// SafetyBuffer returns the free-space margin demanded on top of a payload:
// 5% of the payload, never below 500 MiB.
func SafetyBuffer(totalBytes int64) int64 {
	buffer := int64(float64(totalBytes) * spaceBufferRatio)
	if buffer < spaceBufferMinBytes {
		return spaceBufferMinBytes
	}
	return buffer
}

// RequiredBytes is the total free space a payload needs before a copy is
// allowed to start.
func RequiredBytes(totalBytes int64) int64 {
	return totalBytes + SafetyBuffer(totalBytes)
}

// HumanBytes renders a byte count in binary units for step messages and
// CLI tables.
func HumanBytes(size int64) string {
	if size < 0 {
		return humanize.IBytes(0)
	}
	return humanize.IBytes(uint64(size))
}
