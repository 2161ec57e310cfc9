package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithEnabled(true),
				WithRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating two managers against separate registries", func() {
			a := NewManager(WithRegistry(prometheus.NewRegistry()))
			b := NewManager(WithRegistry(prometheus.NewRegistry()))

			Convey("Then both register without collisions", func() {
				So(a, ShouldNotBeNil)
				So(b, ShouldNotBeNil)
			})
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the package-level helpers", t, func() {
		Convey("When recording pipeline activity", func() {
			record := func() {
				RecordFrameProcessed()
				RecordFrameSkipped()
				RecordFrameDropped()
				RecordTickLatency(12.5)
				RecordDetections("blob", 3)
				RecordDetectorFailure("hough")
				RecordDetectLatency("contour", 4.2)
				RecordMergeLatency(1.5)
				UpdateMergedCount(7)
				RecordPatternLabel("SPARSE")
			}

			Convey("Then they do not panic", func() {
				So(record, ShouldNotPanic)
			})
		})

		Convey("When recording round activity", func() {
			record := func() {
				RecordClick()
				RecordClickRejected()
				RecordHit()
				RecordMiss()
				RecordCollaboration()
				UpdateRoundScore(125)
				UpdateDifficulty(2)
				RecordRoundCompleted()
				UpdateQueueSize(3)
				UpdateQueueCapacity(256)
			}

			Convey("Then they do not panic", func() {
				So(record, ShouldNotPanic)
			})
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics HTTP handler", t, func() {
		h := Handler()

		Convey("Then it is ready to serve", func() {
			So(h, ShouldNotBeNil)
		})
	})
}
