package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "attendance_marks_total",
		Help:      "Time records created, by mark type.",
	}, []string{"type"})

	AttendanceRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "attendance_recomputes_total",
		Help:      "Attendance rows recomputed from their time records.",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "notifications_total",
		Help:      "Notification fan-outs, by result (queued, dropped, failed).",
	}, []string{"result"})

	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "push_deliveries_total",
		Help:      "Gateway deliveries, by gateway and result.",
	}, []string{"gateway", "result"})
)

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
