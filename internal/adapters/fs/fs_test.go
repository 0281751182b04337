package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/pkg/log"
)

func TestBootRecordFile_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	repo := NewBootRecordFile(dir)
	ctx := context.Background()

	rec, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load on empty dir: %v", err)
	}
	if rec.ResetReason() != domain.ResetPowerOn {
		t.Fatalf("reset reason = %s, want power-on", rec.ResetReason())
	}

	want := domain.BootRecord{
		Phase:     domain.PhaseDeepSleep,
		BootCount: 7,
		UpdatedAt: time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC),
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if filepath.Clean(repo.Path()) != filepath.Join(dir, "boot.json") {
		t.Fatalf("expected record file %s/boot.json, got %s", dir, repo.Path())
	}
	if _, err := os.Stat(repo.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	got, err := NewBootRecordFile(dir).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Phase != want.Phase || got.BootCount != want.BootCount || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestBootRecordFile_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "boot.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewBootRecordFile(dir).Load(context.Background()); err == nil {
		t.Error("Load accepted a corrupt record")
	}
}

func TestLevelFile_Pressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button")
	in := NewLevelFile(path, log.NewNoopLogger())

	tests := []struct {
		content string
		want    bool
	}{
		{"0", true},
		{"0\n", true},
		{"1", false},
		{"", false},
	}

	if in.Pressed() {
		t.Error("missing file reads as pressed")
	}
	for _, tt := range tests {
		if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
			t.Fatal(err)
		}
		if got := in.Pressed(); got != tt.want {
			t.Errorf("content %q: Pressed() = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestLevelFile_WatchSignalsFallingEdge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button")
	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	in := NewLevelFile(path, log.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("0"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-in.Wake():
	case <-time.After(5 * time.Second):
		t.Fatal("no wake after the level went low")
	}
}

func TestLEDFile_Set(t *testing.T) {
	path := filepath.Join(t.TempDir(), "led")
	led := NewLEDFile(path, log.NewNoopLogger())

	for _, on := range []bool{true, false, true} {
		led.Set(on)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		want := "0\n"
		if on {
			want = "1\n"
		}
		if string(data) != want {
			t.Errorf("Set(%v) wrote %q, want %q", on, data, want)
		}
	}
}
