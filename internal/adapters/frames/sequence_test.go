package frames_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rainstream/internal/adapters/frames"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFramePNG(t *testing.T, path string, brightness uint8) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: brightness, G: brightness, B: brightness, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestSequenceSource(t *testing.T) {
	ctx := context.Background()

	Convey("Given a directory with ordered frames", t, func() {
		dir := t.TempDir()
		writeFramePNG(t, filepath.Join(dir, "frame_001.png"), 64)
		writeFramePNG(t, filepath.Join(dir, "frame_002.png"), 192)
		So(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a frame"), 0o600), ShouldBeNil)

		src, err := frames.NewSequenceSource(dir)

		Convey("Then only image files are listed", func() {
			So(err, ShouldBeNil)
			So(src.Len(), ShouldEqual, 2)
		})

		Convey("When reading through the sequence", func() {
			first, ok1 := src.Snapshot(ctx)
			second, ok2 := src.Snapshot(ctx)
			_, ok3 := src.Snapshot(ctx)

			Convey("Then frames arrive in name order until exhausted", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(ok3, ShouldBeFalse)
				So(first.At(4, 4), ShouldBeLessThan, second.At(4, 4))
			})
		})
	})

	Convey("Given a directory with a corrupt frame", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "bad.png"), []byte("garbage"), 0o600), ShouldBeNil)
		writeFramePNG(t, filepath.Join(dir, "good.png"), 128)

		src, err := frames.NewSequenceSource(dir)
		So(err, ShouldBeNil)

		Convey("When reading the corrupt frame", func() {
			g, ok := src.Snapshot(ctx)

			Convey("Then it is skipped as a no-data tick", func() {
				So(ok, ShouldBeFalse)
				So(g, ShouldBeNil)
			})

			Convey("And the next read still yields the good frame", func() {
				g2, ok2 := src.Snapshot(ctx)
				So(ok2, ShouldBeTrue)
				So(g2, ShouldNotBeNil)
			})
		})
	})

	Convey("Given an empty directory", t, func() {
		dir := t.TempDir()

		Convey("When constructing a source", func() {
			_, err := frames.NewSequenceSource(dir)

			Convey("Then it fails with ErrNoFrames", func() {
				So(errors.Is(err, frames.ErrNoFrames), ShouldBeTrue)
			})
		})
	})
}
