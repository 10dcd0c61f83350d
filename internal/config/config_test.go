package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/vango-dev/squid/internal/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func codeOf(err error) string {
	var se *errors.SquidError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort || cfg.Server.Host != DefaultHost {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.ModuleTimeout != DefaultModuleTimeout {
		t.Errorf("ModuleTimeout = %v, want %v", cfg.Server.ModuleTimeout, DefaultModuleTimeout)
	}
	if cfg.Paths.Pages != "src/pages" || cfg.Paths.Output != "build" {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if cfg.Build.Compiler != "esbuild" || cfg.Build.ConflictMode != "strict" {
		t.Errorf("Build = %+v", cfg.Build)
	}
	if cfg.Dev.Debounce != 10*time.Millisecond || !cfg.Dev.Reload {
		t.Errorf("Dev = %+v", cfg.Dev)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if codeOf(err) != "E232" {
		t.Errorf("Load() error = %v, want E232", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
  "name": "blog",
  "paths": {"pages": "pages", "output": "dist"},
  "server": {"port": 8080, "moduleTimeout": "2s", "notFound": "next"},
  "build": {"conflictMode": "first-wins", "minify": true},
  "dev": {"debounce": "50ms"}
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Name != "blog" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Server.Port != 8080 || cfg.Server.ModuleTimeout != 2*time.Second || cfg.Server.NotFound != "next" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Host default lost: %q", cfg.Server.Host)
	}
	if cfg.Build.ConflictMode != "first-wins" || !cfg.Build.Minify {
		t.Errorf("Build = %+v", cfg.Build)
	}
	if cfg.Dev.Debounce != 50*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Dev.Debounce)
	}

	if cfg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
	if cfg.PagesPath() != filepath.Join(dir, "pages") {
		t.Errorf("PagesPath() = %q", cfg.PagesPath())
	}
	if cfg.PagesOutputPath() != filepath.Join(dir, "dist", "pages") {
		t.Errorf("PagesOutputPath() = %q", cfg.PagesOutputPath())
	}
	if cfg.LambdaOutputPath() != filepath.Join(dir, "dist", "lambda") {
		t.Errorf("LambdaOutputPath() = %q", cfg.LambdaOutputPath())
	}
	if cfg.Addr() != "localhost:8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"server": `)

	if _, err := Load(dir); codeOf(err) != "E230" {
		t.Errorf("Load() error = %v, want E230", err)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"port range", `{"server": {"port": 70000}}`},
		{"conflict mode", `{"build": {"conflictMode": "last-wins"}}`},
		{"log level", `{"log": {"level": "loud"}}`},
		{"s3 without bucket", `{"artifacts": {"store": "s3"}}`},
		{"metrics path", `{"metrics": {"path": "metrics"}}`},
		{"not found mode", `{"server": {"notFound": "500"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)
			if _, err := Load(dir); codeOf(err) != "E231" {
				t.Errorf("Load() error = %v, want E231", err)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"server": {"port": 8080}}`)
	t.Setenv("SQUID_SERVER_PORT", "9090")
	t.Setenv("SQUID_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{}`)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SQUID_ARTIFACTS_PREFIX=site/v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SQUID_ARTIFACTS_PREFIX") })

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Artifacts.Prefix != "site/v1" {
		t.Errorf("Prefix = %q, want value from .env", cfg.Artifacts.Prefix)
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"server": {"port": 8080}}`)
	t.Setenv("SQUID_SERVER_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("host", "", "")
	if err := flags.Parse([]string{"--port=7070"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path, flags)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want flag value 7070", cfg.Server.Port)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("unset flag must not override: Host = %q", cfg.Server.Host)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `{}`)
	nested := filepath.Join(root, "src", "pages", "blog")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if got != root {
		t.Errorf("FindProjectRoot() = %q, want %q", got, root)
	}

	if _, err := FindProjectRoot(t.TempDir()); codeOf(err) != "E232" {
		t.Errorf("FindProjectRoot() error = %v, want E232", err)
	}
}

func TestAbsolutePathsKept(t *testing.T) {
	cfg := New()
	cfg.Paths.Output = "/srv/site"
	if cfg.OutputPath() != "/srv/site" {
		t.Errorf("OutputPath() = %q", cfg.OutputPath())
	}
}

func TestContext(t *testing.T) {
	if _, err := FromContext(context.Background()); err == nil {
		t.Error("FromContext on empty context should fail")
	}
	cfg := New()
	got, err := FromContext(WithContext(context.Background(), cfg))
	if err != nil || got != cfg {
		t.Errorf("FromContext() = %v, %v", got, err)
	}
}
