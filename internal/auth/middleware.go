package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const CtxClaimsKey = "auth_claims"

// Gate guards routes that need a signed-in user. Without a valid bearer token
// the request is redirected to LoginURL, or rejected with 401 when LoginURL
// is empty.
type Gate struct {
	Tokens   TokenService
	LoginURL string
	Log      logrus.FieldLogger
}

func NewGate(tokens TokenService, loginURL string, log logrus.FieldLogger) *Gate {
	return &Gate{Tokens: tokens, LoginURL: loginURL, Log: log}
}

func (g *Gate) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			g.deny(c, "missing bearer token")
			return
		}

		claims, err := g.Tokens.Parse(raw)
		if err != nil {
			if g.Log != nil {
				g.Log.WithError(err).WithField("path", c.FullPath()).Debug("rejected token")
			}
			g.deny(c, "invalid token")
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func (g *Gate) deny(c *gin.Context, reason string) {
	if g.LoginURL != "" {
		c.Redirect(http.StatusFound, g.LoginURL)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": reason})
}

func bearer(h string) (string, bool) {
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(h[len("Bearer "):])
	return raw, raw != ""
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
