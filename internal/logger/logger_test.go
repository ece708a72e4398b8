package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestSetup(t *testing.T) {
	defer Setup("info", "text")

	t.Run("parses level", func(t *testing.T) {
		Setup("debug", "text")
		assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
		assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		Setup("loud", "json")
		assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
		assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
	})
}

func TestGormLevel(t *testing.T) {
	defer Setup("info", "text")

	Setup("trace", "text")
	assert.Equal(t, gormlogger.Info, GormLevel())

	Setup("warn", "text")
	assert.Equal(t, gormlogger.Warn, GormLevel())

	Setup("error", "text")
	assert.Equal(t, gormlogger.Error, GormLevel())
}
