// Package logging 按教学服务器族的通用做法（wfunc-slot-game/internal/logger,
// park285-Cheese-KakaoTalk-bot/internal/obslog）组装结构化日志：控制台
// 输出 + 滚动文件输出两个 core，按模块取子 logger。
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 描述日志初始化所需的全部选项，由 internal/config 解析得出。
type Config struct {
	Level      string // debug|info|warn|error
	Format     string // console|json
	FilePath   string // 为空表示不写文件
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New 按 cfg 构建根 logger；FilePath 为空时只写控制台。
func New(cfg Config) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(consoleConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}

	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(raw string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Named 构造一个按模块命名的子 logger，多段名字以 "." 连接，
// 例如 Named(base, "router")；房间actor改用下面的 RoomLogger。
func Named(base *zap.Logger, parts ...string) *zap.Logger {
	name := ""
	for i, p := range parts {
		if i > 0 {
			name += "."
		}
		name += p
	}
	return base.Named(name)
}

// RoomLogger 构造 kind:roomID 范围的日志器，并附上常用字段，避免每条
// 日志都要重复 zap.String("room", ...)。
func RoomLogger(base *zap.Logger, kind, roomID string) *zap.Logger {
	return Named(base, "room").With(zap.String("kind", kind), zap.String("room", roomID))
}
