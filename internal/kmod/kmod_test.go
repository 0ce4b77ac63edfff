package kmod

import (
	"testing"
)

func TestParseModules(t *testing.T) {
	text := `nvidia_drm 69632 4 - Live 0x0000000000000000
nvidia_modeset 1142784 6 nvidia_drm, Live 0x0000000000000000
nvidia 34074624 310 nvidia_modeset, Live 0x0000000000000000 (POE)
coretemp 20480 0 - Live 0x0000000000000000
`

	modules, err := parseModules(text)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(modules) != 4 {
		t.Fatalf("expected 4 modules, got %d", len(modules))
	}
	if modules[2].Name != "nvidia" || modules[2].Size != 34074624 || modules[2].Refcount != 310 {
		t.Errorf("unexpected nvidia module entry: %+v", modules[2])
	}
}

func TestParseModulesEmpty(t *testing.T) {
	modules, err := parseModules("\n")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(modules) != 0 {
		t.Errorf("expected no modules, got %d", len(modules))
	}
}

func TestParseModulesMalformed(t *testing.T) {
	if _, err := parseModules("nvidia\n"); err == nil {
		t.Fatal("expected error for truncated line, got nil")
	}
}
