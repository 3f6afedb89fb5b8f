package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("无效级别回落到info", func(t *testing.T) {
		log, err := NewLogger(Config{Level: "verbose"})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("写入日志文件", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "logs", "mailsign.log")
		log, err := NewLogger(Config{Level: "debug", LogFile: file, MaxSize: 1})
		require.NoError(t, err)

		log.Warn("failed to save signature override", zap.Int64("mail_content_id", 7))
		_ = log.Sync()

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"failed to save signature override"`)
		assert.Contains(t, string(data), `"mail_content_id":7`)
	})
}

func TestNewDevelopmentLogger(t *testing.T) {
	log := NewDevelopmentLogger()
	require.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
