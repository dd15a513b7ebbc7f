package config_test

import (
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.CacheNamespace, convey.ShouldEqual, "lb:v1")
			convey.So(cfg.GlobalTTLSeconds, convey.ShouldEqual, 300)
			convey.So(cfg.CountryTTLSeconds, convey.ShouldEqual, 120)
			convey.So(cfg.SessionTTLSeconds, convey.ShouldEqual, 45)
			convey.So(cfg.RecalcIntervalSeconds, convey.ShouldEqual, 30)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.JWTSecret, convey.ShouldBeEmpty)
		})
	})
}
