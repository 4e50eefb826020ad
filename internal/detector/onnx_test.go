package detector

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadClasses(t *testing.T) {
	t.Run("reads one name per line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "classes.txt")
		if err := os.WriteFile(path, []byte("vein\nartery\n\n  capillary  \n"), 0o644); err != nil {
			t.Fatal(err)
		}

		classes := loadClasses(path)

		want := []string{"vein", "artery", "capillary"}
		if len(classes) != len(want) {
			t.Fatalf("expected %d classes, got %d: %v", len(want), len(classes), classes)
		}
		for i := range want {
			if classes[i] != want[i] {
				t.Errorf("class %d = %q, want %q", i, classes[i], want[i])
			}
		}
	})

	t.Run("missing file falls back to default", func(t *testing.T) {
		classes := loadClasses(filepath.Join(t.TempDir(), "nope.txt"))

		if len(classes) != 1 || classes[0] != "vein" {
			t.Errorf("expected default [vein], got %v", classes)
		}
	})

	t.Run("empty path falls back to default", func(t *testing.T) {
		classes := loadClasses("")

		if len(classes) != 1 || classes[0] != "vein" {
			t.Errorf("expected default [vein], got %v", classes)
		}
	})

	t.Run("blank file falls back to default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "classes.txt")
		if err := os.WriteFile(path, []byte("\n \n"), 0o644); err != nil {
			t.Fatal(err)
		}

		classes := loadClasses(path)

		if len(classes) != 1 || classes[0] != "vein" {
			t.Errorf("expected default [vein], got %v", classes)
		}
	})
}

func TestLoadONNXDetectorMissingModel(t *testing.T) {
	_, err := LoadONNXDetector(filepath.Join(t.TempDir(), "missing.onnx"), "")

	if err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestScaleBox(t *testing.T) {
	tests := []struct {
		name           string
		cx, cy, w, h   float32
		scaleX, scaleY float32
		want           image.Rectangle
	}{
		{
			name: "identity scale",
			cx:   320, cy: 320, w: 100, h: 50,
			scaleX: 1, scaleY: 1,
			want: image.Rect(270, 295, 370, 345),
		},
		{
			name: "scaled to frame",
			cx:   320, cy: 320, w: 64, h: 64,
			scaleX: 640.0 / 640.0, scaleY: 480.0 / 640.0,
			want: image.Rect(288, 216, 352, 264),
		},
		{
			name: "origin box",
			cx:   10, cy: 10, w: 20, h: 20,
			scaleX: 1, scaleY: 1,
			want: image.Rect(0, 0, 20, 20),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scaleBox(tt.cx, tt.cy, tt.w, tt.h, tt.scaleX, tt.scaleY)
			if got != tt.want {
				t.Errorf("scaleBox = %v, want %v", got, tt.want)
			}
		})
	}
}
