package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one structured line per request. When nrgin has
// started a transaction its trace ID is attached for correlation.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if userID := UserID(c); userID != "" {
			fields["user_id"] = userID
		}
		if txn := nrgin.Transaction(c); txn != nil {
			if traceID := txn.GetTraceMetadata().TraceID; traceID != "" {
				fields["trace.id"] = traceID
			}
		}

		entry := logger.WithFields(fields)
		switch {
		case len(c.Errors) > 0:
			entry.WithError(c.Errors.Last()).Error("request failed")
		case c.Writer.Status() >= 500:
			entry.Error("request failed")
		default:
			entry.Info("request handled")
		}
	}
}
