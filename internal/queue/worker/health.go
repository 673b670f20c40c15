package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness, readiness and the in-process task tally.
func (w *Worker) HealthHandler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// ready while polling and the database answers
	r.GET("/readyz", func(c *gin.Context) {
		if !w.isReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if w.db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := w.db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "db"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/stats", func(c *gin.Context) {
		s := w.metrics.Snapshot()

		byType := make(gin.H, len(s.ByType))
		for _, t := range s.Types() {
			row := s.ByType[t]
			byType[t] = gin.H{
				"claimed":       row.Claimed,
				"done":          row.Done,
				"retried":       row.Retried,
				"deadLettered":  row.DeadLettered,
				"avgDurationMs": row.AverageDuration.Milliseconds(),
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"claimed":       s.Claimed,
			"done":          s.Done,
			"failed":        s.Failed,
			"retried":       s.Retried,
			"deadLettered":  s.DeadLettered,
			"avgDurationMs": s.AverageDuration.Milliseconds(),
			"maxDurationMs": s.MaxDuration.Milliseconds(),
			"byType":        byType,
		})
	})

	return r
}
