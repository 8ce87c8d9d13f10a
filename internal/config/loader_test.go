package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/xcleague/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.InputDir, convey.ShouldEqual, "input")
				convey.So(cfg.Rounds, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("XCL_ADDR", ":8080")
			_ = os.Setenv("XCL_WORKER_COUNT", "16")
			_ = os.Setenv("XCL_STORE", "sqlite")
			_ = os.Setenv("XCL_PDF", "false")
			_ = os.Setenv("XCL_ROUNDS", "r1,r2 r3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.PDF, convey.ShouldBeFalse)
				convey.So(cfg.Excel, convey.ShouldBeTrue)
				convey.So(cfg.Rounds, convey.ShouldResemble, []string{"r1", "r2", "r3"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# league wide settings
addr: ":9090"
worker_count: 24
input_dir: /srv/races
rounds: [r1, r2]
report_title: "Oxon XC"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("XCL_CONFIG", tmpFile)
			_ = os.Setenv("XCL_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.InputDir, convey.ShouldEqual, "/srv/races")
				convey.So(cfg.Rounds, convey.ShouldResemble, []string{"r1", "r2"})
				convey.So(cfg.ReportTitle, convey.ShouldEqual, "Oxon XC")
				convey.So(cfg.DataDir, convey.ShouldEqual, "data")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("XCL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("XCL_CONFIG", "/nonexistent/xcleague.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When a file is named explicitly", func() {
			path := t.TempDir() + "/explicit.yaml"
			convey.So(os.WriteFile(path, []byte("input_dir: races\nstore: sqlite\n"), 0o644), convey.ShouldBeNil)
			_ = os.Setenv("XCL_INPUT_DIR", "from-env")
			defer func() { _ = os.Unsetenv("XCL_INPUT_DIR") }()

			cfg, err := config.LoadFile(ctx, path)

			convey.Convey("Then the file is layered under the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.InputDir, convey.ShouldEqual, "from-env")
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("XCL_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("XCL_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"XCL_CONFIG",
		"XCL_ADDR",
		"XCL_WORKER_COUNT",
		"XCL_STORE",
		"XCL_PDF",
		"XCL_ROUNDS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "xcleague-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
