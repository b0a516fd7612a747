package logger

import (
	"os"
	"strings"
	"time"

	"github.com/hunter-console/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 默认是 no-op，避免未初始化时（如单元测试）空指针
var Logger = zap.NewNop()

// InitLogger 初始化全局日志。name 会作为 app 字段附加到每条日志，
// path 非空时覆盖配置中的日志文件路径（web / console / mockserver 各写各的文件）。
func InitLogger(cfg *config.LoggerConfig, name, path string) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}
	if path == "" {
		path = cfg.Path
	}

	writeSyncer := getLogWriter(cfg, path)
	encoder := getEncoder(cfg.Mode)

	var core zapcore.Core
	if strings.ToLower(cfg.Mode) == "dev" {
		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core = zapcore.NewTee(
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), level),
			zapcore.NewCore(encoder, writeSyncer, level),
		)
	} else {
		// 生产环境只写文件
		core = zapcore.NewCore(encoder, writeSyncer, level)
	}

	Logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.Fields(zap.String("app", name)))
	zap.ReplaceGlobals(Logger)
	return nil
}

func getEncoder(mode string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	if strings.ToLower(mode) == "dev" {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}

func getLogWriter(cfg *config.LoggerConfig, path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,    // MB
		MaxBackups: cfg.MaxBackups, // 备份文件数量
		MaxAge:     cfg.MaxAge,     // 天数
		Compress:   cfg.Compress,   // 是否压缩
	})
}
