package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

func NewLogger(level string, format string) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    format,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: logger}, nil
}

// WithReplica tags log entries with the replica uid making the call.
func (l *Logger) WithReplica(replicaUID string) *Logger {
	return &Logger{Logger: l.With(zap.String("replica_uid", replicaUID))}
}

// WithDatabase tags log entries with the logical database name they
// pertain to, e.g. the path segment used in the HTTP sync URL.
func (l *Logger) WithDatabase(name string) *Logger {
	return &Logger{Logger: l.With(zap.String("database", name))}
}

// WithDocID tags log entries with the document id a store operation
// is acting on.
func (l *Logger) WithDocID(docID string) *Logger {
	return &Logger{Logger: l.With(zap.String("doc_id", docID))}
}

// WithPeer tags log entries with the peer replica uid of an in-flight
// sync exchange.
func (l *Logger) WithPeer(peerUID string) *Logger {
	return &Logger{Logger: l.With(zap.String("peer_uid", peerUID))}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(zap.Error(err))}
}