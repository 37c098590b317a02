package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithLatencyBuckets([]float64{1, 10, 100}),
				WithAdjustmentBuckets([]float64{1, 5, 25}),
				WithRegisterer(registry),
			)

			Convey("Then its metrics are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.gamesRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_games_recorded_total"], ShouldBeTrue)
			})
		})

		Convey("When registering twice on one registry", func() {
			NewManager(WithRegisterer(registry))

			Convey("Then promauto panics on the duplicate", func() {
				So(func() { NewManager(WithRegisterer(registry)) }, ShouldPanic)
			})
		})
	})
}

// gathered returns the value of the first sample of every family.
func gathered(registry *prometheus.Registry) map[string]float64 {
	out := map[string]float64{}
	families, err := registry.Gather()
	if err != nil {
		return out
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[f.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[f.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[f.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		saved := globalManager
		globalManager = NewManager(WithRegisterer(registry))
		Reset(func() { globalManager = saved })

		Convey("When recording plans", func() {
			RecordPlan(12, 400, true)
			RecordPlan(8, 200, false)
			got := gathered(registry)

			Convey("Then only exhausted runs are counted as such", func() {
				So(got["rally_engine_plans_total"], ShouldEqual, 2)
				So(got["rally_engine_optimizer_exhausted_total"], ShouldEqual, 1)
				So(got["rally_engine_plan_latency_milliseconds"], ShouldEqual, 2)
			})
		})

		Convey("When recording fallbacks by reason", func() {
			RecordRatingFallback("model_unavailable")
			RecordRatingFallback("non_finite")
			RecordRatingFallback("model_unavailable")

			Convey("Then every labelled series is counted", func() {
				So(gathered(registry)["rally_engine_rating_fallbacks_total"], ShouldEqual, 3)
			})
		})

		Convey("When updating gauges", func() {
			UpdateParticipants(40)
			UpdateParticipants(42)
			UpdateQueueSize(3)
			RecordModelTraining(0.25)
			got := gathered(registry)

			Convey("Then the last value wins", func() {
				So(got["rally_engine_participants"], ShouldEqual, 42)
				So(got["rally_engine_queue_size"], ShouldEqual, 3)
				So(got["rally_engine_model_training_loss"], ShouldEqual, 0.25)
				So(got["rally_engine_model_trainings_total"], ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining series", func() {
			So(func() {
				RecordMatchupQuality(77)
				RecordRepeatedRounds(2)
				RecordGameRecorded()
				RecordGameDuplicate()
				RecordAdjustment(4.5)
				RecordRegistryUpdateLatency(0.2)
				RecordRegistryQueryLatency(0.1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.3)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(1)
				RecordWorkerProcessingLatency(1.5)
				RecordWorkerError()
				RecordHTTPRequest("/plan", "POST", "200")
				RecordHTTPRequestDuration("/plan", "POST", "200", 3)
				RecordErrorByComponent("queue", "queue_full")
			}, ShouldNotPanic)
			So(gathered(registry)["rally_engine_repeated_rounds_total"], ShouldEqual, 2)
		})
	})

	Convey("Given the package registry", t, func() {
		So(GetRegistry(), ShouldNotBeNil)
	})
}
