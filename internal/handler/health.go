package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

// Health pings the store and, when configured, Redis. rdb may be nil.
func Health(store repository.Store, backend string, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		storeStatus := "connected"
		if store.Ping(ctx) != nil {
			storeStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		status := http.StatusOK
		if storeStatus == "error" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":      status == http.StatusOK,
			"store":   storeStatus,
			"backend": backend,
			"redis":   redisStatus,
		})
	}
}
