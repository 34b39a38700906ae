package orbitdeterminator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte("[VSOP87]\ndirectory = \"/data/vsop87\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	os.Setenv("ODCONF", dir)
	defer os.Unsetenv("ODCONF")
	cfgLoaded = false
	if c := config(); c.VSOP87Dir != "/data/vsop87" {
		t.Fatalf("VSOP87Dir = %s", c.VSOP87Dir)
	}
	// Cached on the second call.
	if !cfgLoaded {
		t.Fatal("configuration not cached")
	}
	if c := config(); c.VSOP87Dir != "/data/vsop87" {
		t.Fatal("cached configuration differs")
	}
}

func TestConfigMissingEnv(t *testing.T) {
	os.Unsetenv("ODCONF")
	cfgLoaded = false
	assertPanic(t, func() {
		config()
	})
}
