package format

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"opldock/internal/devices"
	"opldock/internal/faults"
	"opldock/internal/logging"
	"opldock/internal/target"
)

const (
	// ConfirmPhrase must be supplied verbatim before any destructive step.
	ConfirmPhrase = "FORMAT"

	defaultLabel  = "PS2USB"
	maxLabelRunes = 11

	remountRetries = 12
	remountDelay   = 500 * time.Millisecond
	mkfsTimeout    = 5 * time.Minute
)

var labelStrip = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeLabel upper-cases a requested volume label, strips everything
// outside [A-Za-z0-9_-], and clamps it to the FAT 11-character limit. An
// empty result falls back to PS2USB.
func SanitizeLabel(label string) string {
	sanitized := strings.ToUpper(labelStrip.ReplaceAllString(label, ""))
	if sanitized == "" {
		sanitized = defaultLabel
	}
	if len(sanitized) > maxLabelRunes {
		sanitized = sanitized[:maxLabelRunes]
	}
	return sanitized
}

// Request describes one format job.
type Request struct {
	TargetPath    string
	ConfirmPhrase string
	VolumeLabel   string
}

// Result reports a completed format.
type Result struct {
	Device     string   `json:"device"`
	Label      string   `json:"label"`
	Mountpoint string   `json:"mountpoint"`
	Created    []string `json:"created"`
}

// Service formats removable media. The exec hooks are swapped in tests.
type Service struct {
	logger *slog.Logger

	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
	inspect    func(ctx context.Context, devicePath string) (devices.Device, error)
	byMount    func(ctx context.Context, mountpoint string) (devices.Device, bool, error)
	sleep      func(d time.Duration)
}

// NewService builds a format service backed by the real system tools.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logging.NewComponentLogger(logger, "format"),
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		inspect: devices.Inspect,
		byMount: devices.FindByMountpoint,
		sleep:   time.Sleep,
	}
}

// Format validates, erases, and re-prepares the device mounted at the
// request's target path.
func (s *Service) Format(ctx context.Context, req Request) (Result, error) {
	if strings.ToUpper(strings.TrimSpace(req.ConfirmPhrase)) != ConfirmPhrase {
		return Result{}, faults.Wrap(faults.ErrValidation, "formatting", "confirm",
			"confirmation phrase mismatch", nil)
	}

	dir, err := target.Resolve(req.TargetPath)
	if err != nil {
		return Result{}, err
	}

	device, err := s.validateDevice(ctx, dir)
	if err != nil {
		return Result{}, err
	}

	label := SanitizeLabel(req.VolumeLabel)
	s.logger.Info("formatting removable device",
		logging.String("device", device.Path),
		logging.String("label", label),
		logging.String("mountpoint", device.Mountpoint))

	if output, err := s.runCommand(ctx, "umount", device.Path); err != nil {
		return Result{}, faults.Wrap(faults.ErrExternalTool, "formatting", "umount",
			fmt.Sprintf("cannot unmount %s: %s", device.Path, strings.TrimSpace(string(output))), err)
	}

	mkfsCtx, cancel := context.WithTimeout(ctx, mkfsTimeout)
	defer cancel()
	if output, err := s.runCommand(mkfsCtx, "mkfs.vfat", "-F", "32", "-n", label, device.Path); err != nil {
		return Result{}, faults.Wrap(faults.ErrExternalTool, "formatting", "mkfs.vfat",
			fmt.Sprintf("format command failed: %s", strings.TrimSpace(string(output))), err)
	}

	mountpoint, err := s.waitRemount(ctx, device.Path)
	if err != nil {
		return Result{}, err
	}

	_, created, err := target.EnsureFolders(mountpoint)
	if err != nil {
		return Result{}, faults.Wrap(faults.ErrAccess, "ensuring_structure", "create folders",
			"formatted volume has invalid structure", err)
	}

	s.logger.Info("format completed",
		logging.String("device", device.Path),
		logging.String("mountpoint", mountpoint),
		logging.Int("folders_created", len(created)))

	return Result{
		Device:     device.Path,
		Label:      label,
		Mountpoint: mountpoint,
		Created:    created,
	}, nil
}

// validateDevice maps the mounted target path back to its partition and
// refuses anything that is not removable media.
func (s *Service) validateDevice(ctx context.Context, dir string) (devices.Device, error) {
	device, found, err := s.byMount(ctx, dir)
	if err != nil {
		return devices.Device{}, faults.Wrap(faults.ErrExternalTool, "formatting", "lsblk",
			"could not inspect block devices", err)
	}
	if !found {
		return devices.Device{}, faults.Wrap(faults.ErrValidation, "formatting", "identify device",
			fmt.Sprintf("no removable device is mounted at %s", dir), nil)
	}
	if !device.Removable && device.Transport != "usb" {
		return devices.Device{}, faults.Wrap(faults.ErrValidation, "formatting", "identify device",
			"refusing to format a non-removable disk", nil)
	}
	if device.Type != "part" {
		return devices.Device{}, faults.Wrap(faults.ErrValidation, "formatting", "identify device",
			fmt.Sprintf("%s is not a partition", device.Path), nil)
	}
	return device, nil
}

// waitRemount polls for the freshly formatted partition to come back with a
// mountpoint. Desktop automounters usually pick it up; if not, one explicit
// udisksctl mount is attempted before giving up.
func (s *Service) waitRemount(ctx context.Context, devicePath string) (string, error) {
	triedMount := false
	for attempt := 0; attempt < remountRetries; attempt++ {
		device, err := s.inspect(ctx, devicePath)
		if err == nil && device.Mountpoint != "" {
			return device.Mountpoint, nil
		}
		if attempt == remountRetries/2 && !triedMount {
			triedMount = true
			if output, err := s.runCommand(ctx, "udisksctl", "mount", "-b", devicePath); err != nil {
				s.logger.Debug("udisksctl mount attempt failed",
					logging.String("device", devicePath),
					logging.String("output", strings.TrimSpace(string(output))),
					logging.Error(err))
			}
		}
		s.sleep(remountDelay)
	}
	return "", faults.Wrap(faults.ErrExternalTool, "formatting", "remount",
		"formatted volume did not mount in time", nil)
}
