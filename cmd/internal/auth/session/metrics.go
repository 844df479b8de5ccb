package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_auth_refresh_rotations_total",
		Help: "Refresh tokens successfully rotated.",
	})
	refreshReuse = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_auth_refresh_reuse_total",
		Help: "Redemption attempts of refresh tokens that were already rotated.",
	})
	refreshPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_auth_refresh_expired_purged_total",
		Help: "Expired refresh tokens deleted when presented.",
	})
)
