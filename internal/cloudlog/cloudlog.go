package cloudlog

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/logging"
)

// Logger writes to Cloud Logging when the process runs on GCP and falls back
// to the standard logger elsewhere (local runs, tests).
type Logger struct {
	client *logging.Client
	logger *logging.Logger
	min    logging.Severity
}

func New(ctx context.Context, logName string, level string) (*Logger, error) {
	l := &Logger{min: parseLevel(level)}

	if !metadata.OnGCE() {
		return l, nil
	}

	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return nil, err
	}
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	l.client = client
	l.logger = client.Logger(logName)
	return l, nil
}

// Nop returns a logger that drops everything. For tests.
func Nop() *Logger {
	return &Logger{min: logging.Emergency + 100}
}

func (l *Logger) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(logging.Debug, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(logging.Info, format, args...)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.logf(logging.Warning, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(logging.Error, format, args...)
}

func (l *Logger) logf(severity logging.Severity, format string, args ...interface{}) {
	if severity < l.min {
		return
	}
	if l.logger == nil {
		log.Printf("%s: %s\n", severity, fmt.Sprintf(format, args...))
		return
	}
	l.logger.Log(logging.Entry{
		Severity: severity,
		Payload:  fmt.Sprintf(format, args...),
	})
}

func parseLevel(level string) logging.Severity {
	if level == "" {
		return logging.Info
	}
	if s := logging.ParseSeverity(level); s != logging.Default {
		return s
	}
	return logging.Info
}
