package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapObserver emits events to a zap.Logger. The event type becomes the log
// message and Data keys become fields.
type ZapObserver struct {
	logger *zap.Logger
}

// NewZapObserver creates a ZapObserver that emits to the given logger.
func NewZapObserver(logger *zap.Logger) *ZapObserver {
	return &ZapObserver{logger: logger}
}

// NewZapLogger builds a zap logger for the given mode: "prod"/"production"
// yields JSON output at info level, anything else the development console
// encoder at debug level.
func NewZapLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch mode {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func (o *ZapObserver) OnEvent(_ context.Context, event Event) {
	level := event.Level.ZapLevel()
	ce := o.logger.Check(level, string(event.Type))
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, len(event.Data)+1)
	fields = append(fields, zap.String("source", event.Source))
	for _, k := range event.Keys() {
		switch v := event.Data[k].(type) {
		case error:
			fields = append(fields, zap.NamedError(k, v))
		default:
			fields = append(fields, zap.Any(k, v))
		}
	}
	ce.Write(fields...)
}

// ZapLevel maps this level to the corresponding zapcore.Level.
func (l Level) ZapLevel() zapcore.Level {
	switch {
	case l <= 8:
		return zapcore.DebugLevel
	case l <= 12:
		return zapcore.InfoLevel
	case l <= 16:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
