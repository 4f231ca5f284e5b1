package config_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takimoto3/apnsgate/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apnsgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
apps:
  - name: com.example.app
    environment: sandbox
    certificate: /etc/apns/com.example.app.pem
    timeout_seconds: 30
  - name: com.example.other
    environment: production
    certificate: /etc/apns/com.example.other.pem
`)

	cfg, err := config.NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	require.Len(t, cfg.Apps, 2)
	assert.Equal(t, "com.example.app", cfg.Apps[0].Name)
	assert.Equal(t, "sandbox", cfg.Apps[0].Environment)
	assert.Equal(t, 30, cfg.Apps[0].TimeoutSeconds)
	assert.Zero(t, cfg.Apps[1].TimeoutSeconds)
}

func TestNewConfigFromFile_Errors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := config.NewConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := writeConfig(t, "listen_addr: [unterminated")
		_, err := config.NewConfigFromFile(path)
		assert.Error(t, err)
	})
}

func TestUpdateConfigWithEnvOverrides(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Apps: []config.App{{
				Name:        "com.example.app",
				Environment: "sandbox",
				Certificate: "/etc/apns/app.pem",
			}},
		}
	}

	t.Run("DefaultListenAddr", func(t *testing.T) {
		cfg, err := config.UpdateConfigWithEnvOverrides(base(), testLogger())
		require.NoError(t, err)
		assert.Equal(t, config.DefaultListenAddr, cfg.ListenAddr)
	})

	t.Run("PortOverride", func(t *testing.T) {
		t.Setenv("PORT", "7070")
		cfg, err := config.UpdateConfigWithEnvOverrides(base(), testLogger())
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.ListenAddr)
	})

	t.Run("ListenAddrOverrideWins", func(t *testing.T) {
		t.Setenv("PORT", "7070")
		t.Setenv("LISTEN_ADDR", "127.0.0.1:6060")
		cfg, err := config.UpdateConfigWithEnvOverrides(base(), testLogger())
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:6060", cfg.ListenAddr)
	})

	t.Run("RejectsUnknownEnvironment", func(t *testing.T) {
		cfg := base()
		cfg.Apps[0].Environment = "staging"
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		assert.ErrorContains(t, err, "environment")
	})

	t.Run("RejectsMissingCertificate", func(t *testing.T) {
		cfg := base()
		cfg.Apps[0].Certificate = ""
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		assert.ErrorContains(t, err, "certificate")
	})

	t.Run("RejectsMissingName", func(t *testing.T) {
		cfg := base()
		cfg.Apps[0].Name = ""
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		assert.ErrorContains(t, err, "name")
	})
}
