// Package logger 基于 logrus 的日志封装，文件输出使用 lumberjack 按大小滚动
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"siemadmin/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerManager 日志管理器
type LoggerManager struct {
	logger *logrus.Logger
	config *config.LogConfig
	closer io.Closer
}

// LoggerInstance 全局日志实例，未初始化时包级函数输出到 logrus 标准实例
var LoggerInstance *LoggerManager

// InitLogger 初始化日志管理器
func InitLogger(cfg *config.LogConfig) (*LoggerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config cannot be nil")
	}

	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("Invalid log level '%s', using 'info' as default", cfg.Level)
	}
	l.SetLevel(level)

	if err := setLogFormatter(l, cfg); err != nil {
		return nil, fmt.Errorf("failed to set log formatter: %w", err)
	}

	lm := &LoggerManager{logger: l, config: cfg}
	if err := lm.setLogOutput(cfg); err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}
	l.SetReportCaller(cfg.Caller)

	LoggerInstance = lm
	return lm, nil
}

func setLogFormatter(l *logrus.Logger, cfg *config.LogConfig) error {
	timestampFormat := "2006-01-02 15:04:05.000"

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	return nil
}

// setLogOutput output 取值 stdout | file | both
func (lm *LoggerManager) setLogOutput(cfg *config.LogConfig) error {
	output := strings.ToLower(cfg.Output)
	if output == "" || output == "stdout" {
		lm.logger.SetOutput(os.Stdout)
		return nil
	}
	if cfg.FilePath == "" {
		return fmt.Errorf("log file_path is required for output %q", cfg.Output)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	lm.closer = rotator

	switch output {
	case "file":
		lm.logger.SetOutput(rotator)
	case "both":
		lm.logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	default:
		return fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
	return nil
}

// GetLogger 获取logrus实例
func (lm *LoggerManager) GetLogger() *logrus.Logger {
	return lm.logger
}

// Close 关闭文件输出
func (lm *LoggerManager) Close() error {
	if lm.closer == nil {
		return nil
	}
	return lm.closer.Close()
}

func base() *logrus.Logger {
	if LoggerInstance != nil {
		return LoggerInstance.logger
	}
	return logrus.StandardLogger()
}

// Debugf 记录格式化调试日志
func Debugf(format string, args ...interface{}) {
	base().Debugf(format, args...)
}

// Info 记录信息日志
func Info(args ...interface{}) {
	base().Info(args...)
}

// Infof 记录格式化信息日志
func Infof(format string, args ...interface{}) {
	base().Infof(format, args...)
}

// Warnf 记录格式化警告日志
func Warnf(format string, args ...interface{}) {
	base().Warnf(format, args...)
}

// Errorf 记录格式化错误日志
func Errorf(format string, args ...interface{}) {
	base().Errorf(format, args...)
}

// Fatalf 记录致命错误并退出
func Fatalf(format string, args ...interface{}) {
	base().Fatalf(format, args...)
}

// WithField 创建带字段的日志条目
func WithField(key string, value interface{}) *logrus.Entry {
	return base().WithField(key, value)
}

// WithFields 创建带多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return base().WithFields(fields)
}
