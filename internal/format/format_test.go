package format

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"opldock/internal/devices"
	"opldock/internal/faults"
	"opldock/internal/logging"
	"opldock/internal/target"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ps2usb", "PS2USB"},
		{"My Games!", "MYGAMES"},
		{"snake_case-ok", "SNAKE_CASE-"},
		{"", "PS2USB"},
		{"@#$%", "PS2USB"},
		{"VERYLONGLABELNAME", "VERYLONGLAB"},
	}
	for _, tc := range tests {
		if got := SanitizeLabel(tc.in); got != tc.want {
			t.Errorf("SanitizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

type commandRecord struct {
	name string
	args []string
}

// stubService wires a Service whose system hooks are canned.
func stubService(device devices.Device, found bool, mountpoint string) (*Service, *[]commandRecord) {
	var calls []commandRecord
	s := &Service{
		logger: logging.NewNop(),
		runCommand: func(_ context.Context, name string, args ...string) ([]byte, error) {
			calls = append(calls, commandRecord{name: name, args: args})
			return nil, nil
		},
		inspect: func(context.Context, string) (devices.Device, error) {
			remounted := device
			remounted.Mountpoint = mountpoint
			return remounted, nil
		},
		byMount: func(context.Context, string) (devices.Device, bool, error) {
			return device, found, nil
		},
		sleep: func(time.Duration) {},
	}
	return s, &calls
}

func TestFormatHappyPath(t *testing.T) {
	mountpoint := t.TempDir()
	stick := devices.Device{
		Name: "sdb1", Path: "/dev/sdb1", Type: "part",
		Removable: true, Transport: "usb", Mountpoint: mountpoint,
	}
	s, calls := stubService(stick, true, mountpoint)

	res, err := s.Format(context.Background(), Request{
		TargetPath:    mountpoint,
		ConfirmPhrase: "format",
		VolumeLabel:   "my ps2",
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if res.Device != "/dev/sdb1" || res.Label != "MYPS2" || res.Mountpoint != mountpoint {
		t.Errorf("result = %+v", res)
	}
	if len(res.Created) != len(target.RequiredFolders) {
		t.Errorf("created = %v", res.Created)
	}

	if len(*calls) != 2 {
		t.Fatalf("calls = %+v", *calls)
	}
	if (*calls)[0].name != "umount" || (*calls)[0].args[0] != "/dev/sdb1" {
		t.Errorf("first command = %+v", (*calls)[0])
	}
	mkfs := (*calls)[1]
	if mkfs.name != "mkfs.vfat" || strings.Join(mkfs.args, " ") != "-F 32 -n MYPS2 /dev/sdb1" {
		t.Errorf("mkfs command = %+v", mkfs)
	}
}

func TestFormatRequiresConfirmPhrase(t *testing.T) {
	s, calls := stubService(devices.Device{}, false, "")

	_, err := s.Format(context.Background(), Request{
		TargetPath:    "/media/user/PS2USB",
		ConfirmPhrase: "YES",
	})
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if len(*calls) != 0 {
		t.Errorf("no command may run before confirmation: %+v", *calls)
	}
}

func TestFormatRefusesUnknownMountpoint(t *testing.T) {
	s, _ := stubService(devices.Device{}, false, "")

	_, err := s.Format(context.Background(), Request{
		TargetPath:    t.TempDir(),
		ConfirmPhrase: "FORMAT",
	})
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestFormatRefusesInternalDisk(t *testing.T) {
	internal := devices.Device{Name: "sda1", Path: "/dev/sda1", Type: "part", Mountpoint: "/data"}
	s, calls := stubService(internal, true, "/data")

	_, err := s.Format(context.Background(), Request{
		TargetPath:    "/data",
		ConfirmPhrase: "FORMAT",
	})
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if len(*calls) != 0 {
		t.Errorf("non-removable disk must never be touched: %+v", *calls)
	}
}

func TestFormatRefusesWholeDisk(t *testing.T) {
	disk := devices.Device{Name: "sdb", Path: "/dev/sdb", Type: "disk", Removable: true, Mountpoint: "/media/u/PS2"}
	s, _ := stubService(disk, true, "/media/u/PS2")

	_, err := s.Format(context.Background(), Request{
		TargetPath:    "/media/u/PS2",
		ConfirmPhrase: "FORMAT",
	})
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestWaitRemountTimesOut(t *testing.T) {
	var commands []commandRecord
	sleeps := 0
	s := &Service{
		logger: logging.NewNop(),
		runCommand: func(_ context.Context, name string, args ...string) ([]byte, error) {
			commands = append(commands, commandRecord{name: name, args: args})
			return nil, errors.New("mount failed")
		},
		inspect: func(context.Context, string) (devices.Device, error) {
			return devices.Device{Path: "/dev/sdb1"}, nil
		},
		sleep: func(time.Duration) { sleeps++ },
	}

	_, err := s.waitRemount(context.Background(), "/dev/sdb1")
	if !errors.Is(err, faults.ErrExternalTool) {
		t.Fatalf("err = %v", err)
	}
	if sleeps != remountRetries {
		t.Errorf("sleeps = %d, want %d", sleeps, remountRetries)
	}
	if len(commands) != 1 || commands[0].name != "udisksctl" {
		t.Errorf("expected one udisksctl attempt, got %+v", commands)
	}
}
