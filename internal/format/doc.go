// Package format prepares removable USB media for OPL use. It validates
// through lsblk that the chosen mountpoint belongs to a removable device,
// reformats the partition as FAT32 with mkfs.vfat, waits for the volume to
// come back, and recreates the required OPL folder structure.
//
// Formatting is irreversible, so the caller must supply the literal
// confirmation phrase "FORMAT" and only removable or USB-attached devices
// are ever accepted.
package format
