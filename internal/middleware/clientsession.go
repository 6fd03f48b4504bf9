package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ClientSessionCookie identifies a browser across requests so the
	// time-limit guard can key session starts per client.
	ClientSessionCookie = "hd_client_session"

	// ContextKeyClientSession is the Gin context key for the session ID.
	ContextKeyClientSession = "client_session"

	clientSessionMaxAge = 60 * 60 * 24 // one day
)

// ClientSession assigns a stable per-browser identifier via cookie,
// minting one on first contact. Candidates have no account, so this is
// the identity the timer keys on.
func ClientSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(ClientSessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(ClientSessionCookie, id, clientSessionMaxAge, "/", "", false, true)
		}
		c.Set(ContextKeyClientSession, id)
		c.Next()
	}
}

// GetClientSession retrieves the client session ID from the Gin context.
func GetClientSession(c *gin.Context) string {
	return c.GetString(ContextKeyClientSession)
}
