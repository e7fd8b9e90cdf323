package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary opldock shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Required returns the tool set the daemon needs. lsblk backs device
// discovery and format validation; the formatter tools are optional
// because a read-only deployment never formats.
func Required() []Requirement {
	return []Requirement{
		{Name: "lsblk", Command: "lsblk", Description: "block device discovery"},
		{Name: "mkfs.vfat", Command: "mkfs.vfat", Description: "FAT32 formatting", Optional: true},
		{Name: "umount", Command: "umount", Description: "unmount before formatting", Optional: true},
		{Name: "udisksctl", Command: "udisksctl", Description: "remount after formatting", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired filters statuses down to unavailable non-optional tools.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
