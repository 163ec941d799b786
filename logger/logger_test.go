package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"siemadmin/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerStdout(t *testing.T) {
	defer func() { LoggerInstance = nil }()

	lm, err := InitLogger(&config.LogConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.Same(t, lm, LoggerInstance)
	assert.Equal(t, "debug", lm.GetLogger().GetLevel().String())
}

func TestInitLoggerRejectsBadConfig(t *testing.T) {
	_, err := InitLogger(nil)
	assert.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "text", Output: "file"})
	assert.Error(t, err, "file 输出必须指定路径")
}

func TestInitLoggerFileOutput(t *testing.T) {
	defer func() { LoggerInstance = nil }()
	path := filepath.Join(t.TempDir(), "app.log")

	lm, err := InitLogger(&config.LogConfig{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1})
	require.NoError(t, err)

	LogError(errors.New("boom"), "req-1", 7, "/api/v1/menu-items", "POST")
	require.NoError(t, lm.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"boom"`)
	assert.Contains(t, string(data), `"request_id":"req-1"`)
}

func TestBusinessOperationLevels(t *testing.T) {
	defer func() { LoggerInstance = nil }()
	lm, err := InitLogger(&config.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	lm.GetLogger().SetOutput(&buf)

	LogBusinessOperation("menu.update", 1, "127.0.0.1", "success", "ok", map[string]interface{}{"menu_item_id": 3})
	LogBusinessOperation("menu.delete", 1, "127.0.0.1", "failed", "has children", nil)

	out := buf.String()
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"level":"warning"`)
	assert.Contains(t, out, `"menu_item_id":3`)
}
