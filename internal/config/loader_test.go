package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mogibot/penalty/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"PENALTY_CONFIG",
		"PENALTY_ADDR",
		"PENALTY_LOG_LEVEL",
		"PENALTY_QUEUE_SIZE",
		"PENALTY_BACKEND",
		"PENALTY_LOUNGE_BASE_URL",
		"PENALTY_MIN_MISSED_RACES",
		"PENALTY_NO_LOSS_RACES",
		"PENALTY_LOCK_SWEEP_SECONDS",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.Backend, convey.ShouldEqual, "memory")
				convey.So(cfg.MinMissedRaces, convey.ShouldEqual, 3)
				convey.So(cfg.NoLossRaces, convey.ShouldEqual, 8)
				convey.So(cfg.Leaderboards, convey.ShouldResemble, []string{"150cc"})
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PENALTY_ADDR", ":8080")
			_ = os.Setenv("PENALTY_QUEUE_SIZE", "256")
			_ = os.Setenv("PENALTY_MIN_MISSED_RACES", "2")
			_ = os.Setenv("PENALTY_NO_LOSS_RACES", "6")
			_ = os.Setenv("PENALTY_LOCK_SWEEP_SECONDS", "15")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 256)
				convey.So(cfg.MinMissedRaces, convey.ShouldEqual, 2)
				convey.So(cfg.NoLossRaces, convey.ShouldEqual, 6)
				convey.So(cfg.LockSweepSeconds, convey.ShouldEqual, 15)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "penalty.yaml")
			yaml := "addr: \":7070\"\nlog_level: debug\nbackend: memory\nkind_amounts:\n  Late: 75\n"
			err := os.WriteFile(path, []byte(yaml), 0o600)
			convey.So(err, convey.ShouldBeNil)

			_ = os.Setenv("PENALTY_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.KindAmounts["Late"], convey.ShouldEqual, 75)
			})
		})

		convey.Convey("When the backend is unknown", func() {
			_ = os.Setenv("PENALTY_BACKEND", "postgres")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading should fail with ErrInvalidConfig", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown backend")
			})
		})

		convey.Convey("When the http backend misses its base URL", func() {
			_ = os.Setenv("PENALTY_BACKEND", "http")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "lounge_base_url")
			})
		})

		convey.Convey("When the thresholds are inverted", func() {
			_ = os.Setenv("PENALTY_MIN_MISSED_RACES", "9")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "no_loss_races")
			})
		})
	})
}
