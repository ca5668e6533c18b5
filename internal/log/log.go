package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 全局日志对象，未初始化时丢弃所有输出
var Logger = zap.NewNop().Sugar()

// LogConfig 日志配置
type LogConfig struct {
	Filename   string        // 日志文件路径，为空时只输出到控制台
	MaxSize    int           // 单个日志文件最大大小，单位MB
	MaxBackups int           // 最大保留的旧日志文件数量
	MaxAge     int           // 旧日志文件保留的最大天数
	Compress   bool          // 是否压缩旧日志文件
	Level      zapcore.Level // 日志级别
	Console    bool          // 是否输出到控制台
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		MaxSize:    10,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
		Level:      zapcore.InfoLevel,
		Console:    true,
	}
}

// InitLogger 按配置组装 core：有文件时写文件，否则 stdout/stderr 按级别分流
func InitLogger(config LogConfig) {
	encoder := getEncoder()

	var cores []zapcore.Core

	if config.Filename != "" {
		fileCore := zapcore.NewCore(encoder, getLogWriter(config), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= config.Level
		}))
		cores = append(cores, fileCore)
		config.Console = false
	}

	if config.Console {
		highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel && lvl >= config.Level
		})
		lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl < zapcore.ErrorLevel && lvl >= config.Level
		})
		cores = append(cores,
			zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lowPriority),
			zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), highPriority),
		)
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Logger = logger.Sugar()
}

// Init 使用默认配置，filename 为空时输出到控制台
func Init(filename, level string) error {
	config := DefaultLogConfig()
	config.Filename = filename
	if level != "" {
		l, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		config.Level = l
	}
	InitLogger(config)
	return nil
}

// Close 确保缓冲的日志都被写出
func Close() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getLogWriter(config LogConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   config.Filename,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	})
}
