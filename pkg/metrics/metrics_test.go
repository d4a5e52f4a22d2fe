package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the service namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)

				manager.submissions.WithLabelValues("maze").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "firesafe_leaderboard_submissions_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("kids"),
				WithMetricsEnabled(false),
				WithRefreshInterval(3*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)

				manager.queries.WithLabelValues("crossword").Inc()
				expected := `
# HELP kids_leaderboard_queries_total Total number of ranked-list queries
# TYPE kids_leaderboard_queries_total counter
kids_leaderboard_queries_total{env="test",game_key="crossword"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "kids_leaderboard_queries_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "firesafe")
				So(manager.subsystem, ShouldEqual, "leaderboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording submissions", func() {
			before := testutil.ToFloat64(globalManager.submissions.WithLabelValues("escape-plan"))
			RecordSubmission("escape-plan", 2550)
			RecordSubmission("escape-plan", 1200)

			Convey("Then the per-game counter should grow", func() {
				after := testutil.ToFloat64(globalManager.submissions.WithLabelValues("escape-plan"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording is disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)

			before := testutil.ToFloat64(globalManager.queries.WithLabelValues("hazard-hunt"))
			RecordQuery("hazard-hunt")
			RecordRateLimited()
			RecordSubmissionFailed("validation")

			Convey("Then business counters should not move", func() {
				So(testutil.ToFloat64(globalManager.queries.WithLabelValues("hazard-hunt")), ShouldEqual, before)
			})
		})

		Convey("When updating store totals", func() {
			UpdateStoreTotals(42, 3)

			Convey("Then gauges should reflect the values", func() {
				So(testutil.ToFloat64(globalManager.totalEntries), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.totalGameKeys), ShouldEqual, 3)
			})
		})

		Convey("When recording store, http, error and system metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordStoreAppendLatency("memory", 0.2)
					RecordStoreQueryLatency("postgres", 3.5)
					RecordStoreError("postgres", "append")
					RecordHTTPRequest("leaderboard_get", "GET", "200")
					RecordHTTPRequestDuration("leaderboard_post", "POST", "201", 4.0)
					RecordErrorByType("client_error", "medium")
					RecordErrorByEndpoint("leaderboard_post", "POST", "client_error")
					RecordErrorLatency("http", "server_error", 12.0)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it should not error and should contain build info", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "go_build_info")
			})
		})
	})
}

func TestMetricsInit(t *testing.T) {
	Convey("Given the global manager rebuilt from options", t, func() {
		Init(
			WithNamespace("drill"),
			WithRefreshInterval(2*time.Second),
			WithConstLabels(map[string]string{"env": "test"}),
		)
		defer Init()

		RecordQuery("smoke-maze")

		Convey("Then metrics use the new namespace on the new registry", func() {
			So(RefreshInterval(), ShouldEqual, 2*time.Second)
			expected := `
# HELP drill_leaderboard_queries_total Total number of ranked-list queries
# TYPE drill_leaderboard_queries_total counter
drill_leaderboard_queries_total{env="test",game_key="smoke-maze"} 1
`
			err := testutil.GatherAndCompare(GetRegistry(), strings.NewReader(expected), "drill_leaderboard_queries_total")
			So(err, ShouldBeNil)
		})
	})

	Convey("Given the global manager initialized as disabled", t, func() {
		Init(WithMetricsEnabled(false))
		defer Init()

		RecordQuery("smoke-maze")

		Convey("Then business counters stay at zero", func() {
			So(testutil.ToFloat64(globalManager.queries.WithLabelValues("smoke-maze")), ShouldEqual, 0)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestSetEnabledConcurrently(t *testing.T) {
	Convey("Given recording and toggling from many goroutines", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func(on bool) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					SetEnabled(on)
				}
			}(i%2 == 0)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordQuery("escape-plan")
				}
			}()
		}
		wg.Wait()
		SetEnabled(true)

		Convey("Then recording ends enabled", func() {
			So(globalManager.Enabled(), ShouldBeTrue)
		})
	})
}
