// Package logger 提供基于 zap 的结构化日志构造。
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建 zap 日志器
// dev 环境使用开发配置（彩色、易读），其他环境使用生产配置（JSON、采样）
// 所有日志都会带上服务名和版本字段，方便多服务汇聚后过滤
func New(env, level, encoding, name, version string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lv, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lv)

	switch encoding {
	case "json", "console":
		cfg.Encoding = encoding
	case "":
		// 保持环境默认值
	default:
		return nil, fmt.Errorf("unsupported log encoding: %s", encoding)
	}

	lg, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return lg.With(
		zap.String("service", name),
		zap.String("version", version),
	), nil
}
