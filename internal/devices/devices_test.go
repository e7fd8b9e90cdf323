package devices

import "testing"

const lsblkFixture = `NAME="sda" PATH="/dev/sda" SIZE="931.5G" TYPE="disk" RM="0" TRAN="sata" MOUNTPOINT="" LABEL="" FSTYPE=""
NAME="sda1" PATH="/dev/sda1" SIZE="931.5G" TYPE="part" RM="0" TRAN="" MOUNTPOINT="/" LABEL="" FSTYPE="ext4"
NAME="sdb" PATH="/dev/sdb" SIZE="57.3G" TYPE="disk" RM="1" TRAN="usb" MOUNTPOINT="" LABEL="" FSTYPE=""
NAME="sdb1" PATH="/dev/sdb1" SIZE="57.3G" TYPE="part" RM="1" TRAN="usb" MOUNTPOINT="/media/user/PS2 USB" LABEL="PS2USB" FSTYPE="vfat"
`

func TestParseList(t *testing.T) {
	listing := ParseList(lsblkFixture)
	if len(listing) != 4 {
		t.Fatalf("parsed %d rows, want 4", len(listing))
	}

	stick := listing[3]
	if stick.Name != "sdb1" || stick.Path != "/dev/sdb1" {
		t.Errorf("identity = %s %s", stick.Name, stick.Path)
	}
	if !stick.Removable || stick.Transport != "usb" {
		t.Errorf("attachment = %v %s", stick.Removable, stick.Transport)
	}
	if stick.Mountpoint != "/media/user/PS2 USB" {
		t.Errorf("mountpoint with spaces mangled: %q", stick.Mountpoint)
	}
	if stick.Label != "PS2USB" || stick.FSType != "vfat" {
		t.Errorf("label/fstype = %s %s", stick.Label, stick.FSType)
	}

	root := listing[1]
	if root.Removable || root.Transport != "" {
		t.Errorf("internal disk flagged removable: %+v", root)
	}
}

func TestParseListSkipsNoise(t *testing.T) {
	listing := ParseList("\n\nnot a device line\n")
	if len(listing) != 0 {
		t.Fatalf("listing = %+v", listing)
	}
}

func TestUsableTarget(t *testing.T) {
	tests := []struct {
		name   string
		device Device
		want   bool
	}{
		{"mounted removable partition", Device{Type: "part", Mountpoint: "/media/u/PS2", Removable: true}, true},
		{"mounted usb partition", Device{Type: "part", Mountpoint: "/media/u/PS2", Transport: "usb"}, true},
		{"unmounted partition", Device{Type: "part", Removable: true}, false},
		{"whole disk", Device{Type: "disk", Mountpoint: "/media/u/PS2", Removable: true}, false},
		{"internal partition", Device{Type: "part", Mountpoint: "/"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.device.UsableTarget(); got != tc.want {
				t.Errorf("UsableTarget() = %v, want %v", got, tc.want)
			}
		})
	}
}
