package gameid

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"SLUS_209.46", "SLUS_209.46", false},
		{"slus_209.46", "SLUS_209.46", false},
		{"  scus_971.24  ", "SCUS_971.24", false},
		{"SLUS_20946", "", true},
		{"SLUS-209.46", "", true},
		{"SLU_209.46", "", true},
		{"SLUS_209.4", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := Normalize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, err := Normalize("slps_123.45")
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}
	if first != second {
		t.Fatalf("normalize not idempotent: %q vs %q", first, second)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate("Shadow of the Colossus")
	b := Generate("Shadow of the Colossus")
	if a != b {
		t.Fatalf("same seed produced %q and %q", a, b)
	}
	if !Pattern.MatchString(a) {
		t.Fatalf("generated id %q does not match canonical pattern", a)
	}
	if !strings.HasPrefix(a, "SHAD_") {
		t.Fatalf("generated id %q should take its prefix from the seed", a)
	}
}

func TestGeneratePadsShortSeeds(t *testing.T) {
	tests := []struct {
		seed       string
		wantPrefix string
	}{
		{"ab", "ABAU"},
		{"x", "XAUT"},
		{"", "AUTO"},
		{"!!!", "AUTO"},
	}
	for _, tc := range tests {
		got := Generate(tc.seed)
		if !strings.HasPrefix(got, tc.wantPrefix+"_") {
			t.Errorf("Generate(%q) = %q, want prefix %s_", tc.seed, got, tc.wantPrefix)
		}
		if !Pattern.MatchString(got) {
			t.Errorf("Generate(%q) = %q does not match canonical pattern", tc.seed, got)
		}
	}
}

func TestGenerateDiffersAcrossSeeds(t *testing.T) {
	if Generate("Gran Turismo 3") == Generate("Gran Turismo 4") {
		t.Fatal("different seeds should yield different identifiers")
	}
}

func TestFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"SLUS_209.46_Shadow.iso", "SLUS_209.46", true},
		{"slus_209.46 shadow.iso", "SLUS_209.46", true},
		{"SLUS_209.46.iso", "SLUS_209.46", true},
		{"Shadow of the Colossus.iso", "", false},
		{"prefix_SLUS_209.46.iso", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := FromFilename(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("FromFilename(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFromText(t *testing.T) {
	id, ok := FromText(`BOOT2 = cdrom0:\SLUS_203.12;1`)
	if !ok || id != "SLUS_203.12" {
		t.Fatalf("FromText = (%q, %v), want (SLUS_203.12, true)", id, ok)
	}
	if _, ok := FromText("no identifier here"); ok {
		t.Fatal("expected no match")
	}
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
		wantErr  bool
	}{
		{"Explicit Name", "ignored.iso", "Explicit Name", false},
		{"", "SLUS_209.46.Shadow.of.the.Colossus.iso", "Shadow of the Colossus", false},
		{"", "Jak_and_Daxter.iso", "Jak and Daxter", false},
		{"", "SLUS_209.46.iso", "", true},
		{"", "", "", true},
	}
	for _, tc := range tests {
		got, err := DeriveName(tc.name, tc.filename)
		if tc.wantErr {
			if err == nil {
				t.Errorf("DeriveName(%q, %q): expected error, got %q", tc.name, tc.filename, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("DeriveName(%q, %q): %v", tc.name, tc.filename, err)
			continue
		}
		if got != tc.want {
			t.Errorf("DeriveName(%q, %q) = %q, want %q", tc.name, tc.filename, got, tc.want)
		}
	}
}
