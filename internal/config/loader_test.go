package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rally/internal/config"
)

var configEnvVars = []string{
	"RALLY_CONFIG",
	"RALLY_ADDR",
	"RALLY_QUEUE_SIZE",
	"RALLY_TEAM_SIZE",
	"RALLY_RATING_STRATEGY",
	"RALLY_CHEMISTRY_ENABLED",
	"RALLY_BETA",
	"RALLY_SEED",
	"RALLY_SIGMA_REFERENCE",
	"RALLY_QUALITY_CLOSENESS",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()
		noDotenv := config.WithEnvFile("")

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, noDotenv)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.ChemistryEnabled, convey.ShouldBeFalse)
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RALLY_ADDR", ":8080")
			_ = os.Setenv("RALLY_QUEUE_SIZE", "64")
			_ = os.Setenv("RALLY_CHEMISTRY_ENABLED", "true")
			_ = os.Setenv("RALLY_BETA", "80.5")
			_ = os.Setenv("RALLY_SEED", "42")
			_ = os.Setenv("RALLY_SIGMA_REFERENCE", "80")
			_ = os.Setenv("RALLY_QUALITY_CLOSENESS", "50")

			cfg, err := config.Load(ctx, noDotenv)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.ChemistryEnabled, convey.ShouldBeTrue)
			convey.So(cfg.Beta, convey.ShouldEqual, 80.5)
			convey.So(cfg.Seed, convey.ShouldEqual, 42)
			convey.So(cfg.SigmaReference, convey.ShouldEqual, 80)
			convey.So(cfg.QualityCloseness, convey.ShouldEqual, 50)
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			path := writeFile(t, "rally.yaml", `
addr: ":9090"
queue_size: 300
team_size: 4
rating_strategy: learned
model_path: /tmp/model.json
`)
			_ = os.Setenv("RALLY_CONFIG", path)
			_ = os.Setenv("RALLY_TEAM_SIZE", "5")

			cfg, err := config.Load(ctx, noDotenv)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
			convey.So(cfg.TeamSize, convey.ShouldEqual, 5)
			convey.So(cfg.RatingStrategy, convey.ShouldEqual, "learned")
			convey.So(cfg.ModelPath, convey.ShouldEqual, "/tmp/model.json")
		})

		convey.Convey("When a .env file is present", func() {
			path := writeFile(t, ".env", "RALLY_QUEUE_SIZE=77\nRALLY_ADDR=:7070\n")
			_ = os.Setenv("RALLY_ADDR", ":6060")

			cfg, err := config.Load(ctx, config.WithEnvFile(path))

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 77)
			convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
		})

		convey.Convey("When the .env file is missing it is ignored", func() {
			_, err := config.Load(ctx, config.WithEnvFile(filepath.Join(t.TempDir(), "absent.env")))
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("RALLY_CONFIG", "/non/existent/file.yaml")
			_, err := config.Load(ctx, noDotenv)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value cannot be parsed", func() {
			_ = os.Setenv("RALLY_QUEUE_SIZE", "invalid")
			_, err := config.Load(ctx, noDotenv)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value is out of range", func() {
			_ = os.Setenv("RALLY_RATING_STRATEGY", "elo")
			_, err := config.Load(ctx, noDotenv)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
