package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// PrincipalHeader carries the authenticated chef id set by the authentication gateway.
	PrincipalHeader = "X-Chef-ID"

	principalKey = "principal_id"
)

// requirePrincipal rejects requests without a valid principal with 401.
func requirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(PrincipalHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing " + PrincipalHeader + " header"})
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid " + PrincipalHeader + " header"})
			return
		}
		c.Set(principalKey, id)
		c.Next()
	}
}

// optionalPrincipal lets anonymous requests through but still rejects a malformed principal.
func optionalPrincipal() gin.HandlerFunc {
	required := requirePrincipal()
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader(PrincipalHeader)) == "" {
			c.Next()
			return
		}
		required(c)
	}
}

// principal returns the authenticated chef, or uuid.Nil for anonymous requests.
func principal(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(principalKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.
			WithField("method", c.Request.Method).
			WithField("route", c.FullPath()).
			WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).String()).
			Debug("request served")
	}
}
