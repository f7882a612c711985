package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points HOME and the working directory at fresh temp dirs.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("IDEASPARK_CONFIG_PATH", "")
	work = t.TempDir()
	oldwd, _ := os.Getwd()
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	return home, work
}

func TestLoadDefaults(t *testing.T) {
	home, _ := isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.BaseURL != DefaultServiceURL || cfg.Service.TimeoutMS != DefaultTimeoutMS {
		t.Fatalf("service=%+v", cfg.Service)
	}
	if cfg.Storage.BaseDir != filepath.Join(home, ".ideaspark") {
		t.Fatalf("base dir=%q", cfg.Storage.BaseDir)
	}
	if cfg.DBPath() != filepath.Join(home, ".ideaspark", "ideaspark.db") {
		t.Fatalf("db path=%q", cfg.DBPath())
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level=%q", cfg.Log.Level)
	}
}

func TestLoadJSONCAndPrecedence(t *testing.T) {
	home, _ := isolate(t)

	globalDir := filepath.Join(home, ".ideaspark")
	if err := os.MkdirAll(globalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	globalCfg := `{
  // global
  "service": {"base_url": "http://global:9000", "timeout_ms": 5000},
  "log": {"level": "debug"}
}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalCfg), 0o644); err != nil {
		t.Fatal(err)
	}
	projectCfg := `{
  /* project wins */
  "service": {"base_url": "http://project:9001/"},
  "server": {"model": "project-model"}
}`
	if err := os.WriteFile("ideaspark.config.json", []byte(projectCfg), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.BaseURL != "http://project:9001" {
		t.Fatalf("base_url=%q", cfg.Service.BaseURL)
	}
	if cfg.Service.TimeoutMS != 5000 {
		t.Fatalf("timeout_ms=%d", cfg.Service.TimeoutMS)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level=%q", cfg.Log.Level)
	}
	if cfg.Server.Model != "project-model" || cfg.Server.MaxContentTokens != DefaultMaxContentTokens {
		t.Fatalf("server=%+v", cfg.Server)
	}
}

func TestEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("IDEASPARK_SERVICE_URL", "http://env:1234")
	t.Setenv("IDEASPARK_TIMEOUT_MS", "2500")
	t.Setenv("IDEASPARK_DB_PATH", "/tmp/ideaspark-test.db")
	t.Setenv("IDEASPARK_LOG_LEVEL", "WARN")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.BaseURL != "http://env:1234" || cfg.Service.TimeoutMS != 2500 {
		t.Fatalf("service=%+v", cfg.Service)
	}
	if cfg.DBPath() != "/tmp/ideaspark-test.db" {
		t.Fatalf("db path=%q", cfg.DBPath())
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("level=%q", cfg.Log.Level)
	}
}

func TestEnvInvalidTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("IDEASPARK_TIMEOUT_MS", "soon")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid timeout")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("ideaspark.config.json", []byte(`{"service": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestUnknownLogLevelFallsBack(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("ideaspark.config.json", []byte(`{"log": {"level": "chatty"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("level=%q", cfg.Log.Level)
	}
}

func TestStripJSONCommentsKeepsStrings(t *testing.T) {
	in := []byte(`{"url": "http://x//y", /* c */ "a": "b" // tail
}`)
	got := string(stripJSONComments(in))
	want := "{\"url\": \"http://x//y\",  \"a\": \"b\" \n}"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestInitScaffoldAndWriteServiceURL(t *testing.T) {
	_, work := isolate(t)
	path, err := InitProjectConfigScaffold(work)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("scaffold not written: %v", err)
	}
	if err := WriteServiceURL(work, "http://written:8080"); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Service.BaseURL != "http://written:8080" {
		t.Fatalf("base_url=%q", cfg.Service.BaseURL)
	}
	if cfg.Server.Model != DefaultModel {
		t.Fatalf("scaffold should keep defaults, model=%q", cfg.Server.Model)
	}
}
