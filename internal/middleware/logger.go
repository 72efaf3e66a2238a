package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// AccessLogger writes one logrus entry per request, so access logs follow
// the configured level and format.
func AccessLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return chimw.RequestLogger(&logFormatter{logger: logger})
}

type logFormatter struct {
	logger logrus.FieldLogger
}

func (f *logFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	fields := logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"remote": r.RemoteAddr,
	}
	if id := chimw.GetReqID(r.Context()); id != "" {
		fields["request_id"] = id
	}
	return &logEntry{entry: f.logger.WithFields(fields)}
}

type logEntry struct {
	entry *logrus.Entry
}

func (e *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	entry := e.entry.WithFields(logrus.Fields{
		"status":  status,
		"bytes":   bytes,
		"elapsed": elapsed.String(),
	})
	switch {
	case status >= 500:
		entry.Error("request")
	case status >= 400:
		entry.Warn("request")
	default:
		entry.Info("request")
	}
}

func (e *logEntry) Panic(v interface{}, stack []byte) {
	e.entry.WithField("panic", v).Error(string(stack))
}
