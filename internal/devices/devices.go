package devices

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const lsblkTimeout = 10 * time.Second

// Device is one block device row from lsblk.
type Device struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Size       string `json:"size"`
	Type       string `json:"type"`
	Removable  bool   `json:"removable"`
	Transport  string `json:"transport"`
	Mountpoint string `json:"mountpoint"`
	Label      string `json:"label"`
	FSType     string `json:"fstype"`
}

// UsableTarget reports whether the device is a mounted partition a user
// could import games onto.
func (d Device) UsableTarget() bool {
	return d.Type == "part" && d.Mountpoint != "" && (d.Removable || d.Transport == "usb")
}

// List returns every removable or USB-attached block device on the system.
func List(ctx context.Context) ([]Device, error) {
	lsblkCtx, cancel := context.WithTimeout(ctx, lsblkTimeout)
	defer cancel()

	output, err := exec.CommandContext(lsblkCtx, "lsblk", "-P", "-o",
		"NAME,PATH,SIZE,TYPE,RM,TRAN,MOUNTPOINT,LABEL,FSTYPE").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run lsblk: %w", err)
	}

	all := ParseList(string(output))
	removable := make([]Device, 0, len(all))
	for _, device := range all {
		if device.Removable || device.Transport == "usb" {
			removable = append(removable, device)
		}
	}
	return removable, nil
}

// Inspect returns the lsblk row for a single device path.
func Inspect(ctx context.Context, devicePath string) (Device, error) {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" {
		return Device{}, fmt.Errorf("no device specified")
	}

	lsblkCtx, cancel := context.WithTimeout(ctx, lsblkTimeout)
	defer cancel()

	output, err := exec.CommandContext(lsblkCtx, "lsblk", "-P", "-o",
		"NAME,PATH,SIZE,TYPE,RM,TRAN,MOUNTPOINT,LABEL,FSTYPE", devicePath).Output()
	if err != nil {
		return Device{}, fmt.Errorf("failed to run lsblk: %w", err)
	}

	rows := ParseList(string(output))
	if len(rows) == 0 {
		return Device{}, fmt.Errorf("device not found: %s", devicePath)
	}
	return rows[0], nil
}

// FindByMountpoint returns the removable device mounted at the given path.
func FindByMountpoint(ctx context.Context, mountpoint string) (Device, bool, error) {
	listing, err := List(ctx)
	if err != nil {
		return Device{}, false, err
	}
	for _, device := range listing {
		if device.Mountpoint == mountpoint {
			return device, true, nil
		}
	}
	return Device{}, false, nil
}

var lsblkPair = regexp.MustCompile(`([A-Z]+)="([^"]*)"`)

// ParseList parses lsblk -P output, one device per line.
func ParseList(output string) []Device {
	var listing []Device
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pairs := make(map[string]string)
		for _, match := range lsblkPair.FindAllStringSubmatch(line, -1) {
			pairs[match[1]] = match[2]
		}
		if len(pairs) == 0 {
			continue
		}
		listing = append(listing, Device{
			Name:       pairs["NAME"],
			Path:       pairs["PATH"],
			Size:       pairs["SIZE"],
			Type:       pairs["TYPE"],
			Removable:  pairs["RM"] == "1",
			Transport:  pairs["TRAN"],
			Mountpoint: pairs["MOUNTPOINT"],
			Label:      pairs["LABEL"],
			FSType:     pairs["FSTYPE"],
		})
	}
	return listing
}
