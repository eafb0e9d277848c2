package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it owns a private registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
				So(manager.Registry(), ShouldNotEqual, prometheus.DefaultRegisterer)
			})
		})

		Convey("When two managers share nothing", func() {
			first := NewManager(WithRegistry(prometheus.NewRegistry()))
			second := NewManager(WithRegistry(prometheus.NewRegistry()))

			Convey("Then registering both does not panic", func() {
				So(first, ShouldNotBeNil)
				So(second, ShouldNotBeNil)
			})
		})
	})
}

func TestHireMetrics(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		manager := NewManager(WithRegistry(prometheus.NewRegistry()))

		Convey("When hires complete with different outcomes", func() {
			manager.HireCompleted("success", 20*time.Millisecond)
			manager.HireCompleted("conflict", 5*time.Millisecond)
			manager.HireCompleted("conflict", 7*time.Millisecond)
			manager.HireRetried()

			Convey("Then each outcome is counted separately", func() {
				So(testutil.ToFloat64(manager.hireAttempts.WithLabelValues("success")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.hireAttempts.WithLabelValues("conflict")), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.hireRetries), ShouldEqual, 1)
				So(testutil.CollectAndCount(manager.hireDuration), ShouldEqual, 1)
			})
		})

		Convey("When notifications and connections change", func() {
			manager.NotificationSent("delivered")
			manager.NotificationSent("no_channel")
			manager.LiveConnections(3)
			manager.LiveConnections(2)

			Convey("Then counters and the gauge reflect it", func() {
				So(testutil.ToFloat64(manager.notifications.WithLabelValues("delivered")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.notifications.WithLabelValues("no_channel")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.liveConnections), ShouldEqual, 2)
			})
		})
	})
}

func TestHTTPMetrics(t *testing.T) {
	Convey("Given a manager serving its registry", t, func() {
		manager := NewManager(WithRegistry(prometheus.NewRegistry()))
		manager.ObserveHTTP("/api/hire/:bidId", http.MethodPost, http.StatusOK, 12*time.Millisecond)
		manager.ObserveHTTP("", http.MethodGet, http.StatusNotFound, time.Millisecond)

		Convey("When scraping the handler", func() {
			rec := httptest.NewRecorder()
			manager.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			body, err := io.ReadAll(rec.Body)

			Convey("Then the exposition contains the recorded series", func() {
				So(err, ShouldBeNil)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(string(body), ShouldContainSubstring, `gigflow_http_requests_total{method="POST",route="/api/hire/:bidId",status="200"} 1`)
				So(string(body), ShouldContainSubstring, `route="unmatched"`)
			})
		})
	})
}
