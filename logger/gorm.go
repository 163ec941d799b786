package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// GormWriter 实现 gorm logger 的 Writer，SQL 日志走全局 logrus 输出
type GormWriter struct {
	level logrus.Level
}

// NewGormWriter level 为写入 logrus 时使用的级别
func NewGormWriter(level logrus.Level) *GormWriter {
	return &GormWriter{level: level}
}

// Printf gorm 的消息以文件位置加换行开头，合并成一行
func (w *GormWriter) Printf(format string, args ...interface{}) {
	entry := base().WithField("component", "gorm")
	if !entry.Logger.IsLevelEnabled(w.level) {
		return
	}
	entry.Logf(w.level, strings.ReplaceAll(format, "\n", " "), args...)
}
