package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapOptions configures the zap backend behind Logger
type ZapOptions struct {
	Debug  bool
	Format string    // "console" (default) or "json"
	Output io.Writer // defaults to os.Stderr so command output on stdout stays clean
	RunID  string    // attached to every entry when set
}

// NewZapLogger builds a Logger backed by a zap sugared logger.
// The returned func flushes buffered entries and should be deferred by the caller.
func NewZapLogger(options ZapOptions) (Logger, func()) {
	zapLogger := newZapCore(options)
	if options.RunID != "" {
		zapLogger = zapLogger.With(zap.String("run_id", options.RunID))
	}

	logger := NewLogger("", sugarFuncs(zapLogger.Sugar()))
	return logger, func() { _ = zapLogger.Sync() }
}

func sugarFuncs(sugar *zap.SugaredLogger) LogFuncs {
	return LogFuncs{
		Debugf: sugar.Debugf,
		Infof:  sugar.Infof,
		Warnf:  sugar.Warnf,
		Errorf: sugar.Errorf,
		With: func(keysAndValues ...interface{}) LogFuncs {
			return sugarFuncs(sugar.With(keysAndValues...))
		},
	}
}

func newZapCore(options ZapOptions) *zap.Logger {
	level := zapcore.InfoLevel
	if options.Debug {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch options.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var output io.Writer = os.Stderr
	if options.Output != nil {
		output = options.Output
	}
	writeSyncer := zapcore.Lock(zapcore.AddSync(output))

	opts := []zap.Option{}
	if options.Debug {
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(zapcore.NewCore(encoder, writeSyncer, level), opts...)
}
