// Package metrics 定义 Prometheus 指标。
//
// InitMetrics 幂等，可在测试中重复调用。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UserRegisteredTotal 注册成功次数。
	UserRegisteredTotal prometheus.Counter
	// LoginSuccessTotal 登录成功次数。
	LoginSuccessTotal prometheus.Counter
	// LoginFailureTotal 登录失败次数。
	LoginFailureTotal prometheus.Counter
	// MealUpsertTotal 订餐写入成功次数。
	MealUpsertTotal prometheus.Counter
	// MealRejectedTotal 订餐被拒次数，按原因区分。
	MealRejectedTotal *prometheus.CounterVec
	// RateLimitWaitDuration 限流等待时长分布。
	RateLimitWaitDuration prometheus.Histogram
	// RateLimitTimeoutTotal 限流等待超时次数。
	RateLimitTimeoutTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics 创建并注册所有指标。
func InitMetrics() {
	initOnce.Do(func() {
		UserRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafeteria_user_registered_total",
			Help: "Total number of successful user registrations.",
		})
		LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafeteria_login_success_total",
			Help: "Total number of successful logins.",
		})
		LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafeteria_login_failure_total",
			Help: "Total number of failed login attempts.",
		})
		MealUpsertTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafeteria_meal_upsert_total",
			Help: "Total number of successful meal upserts.",
		})
		MealRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafeteria_meal_rejected_total",
			Help: "Total number of rejected meal upserts by reason.",
		}, []string{"reason"})
		RateLimitWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cafeteria_ratelimit_wait_seconds",
			Help:    "Time spent waiting on the login rate limiter.",
			Buckets: prometheus.DefBuckets,
		})
		RateLimitTimeoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafeteria_ratelimit_timeout_total",
			Help: "Total number of rate limiter wait timeouts.",
		})

		prometheus.MustRegister(
			UserRegisteredTotal,
			LoginSuccessTotal,
			LoginFailureTotal,
			MealUpsertTotal,
			MealRejectedTotal,
			RateLimitWaitDuration,
			RateLimitTimeoutTotal,
		)
	})
}
