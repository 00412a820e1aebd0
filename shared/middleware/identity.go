package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller identity. The gateway in front of the
// ledger authenticates the user and sets it; the ledger trusts it.
const UserIDHeader = "X-User-Id"

const userIDKey = "userId"

// UserIdentity rejects requests without a positive numeric X-User-Id.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": UserIDHeader + " header required",
			})
			c.Abort()
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid " + UserIDHeader + " header",
			})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// SetUserID is what UserIdentity stores; handler tests use it directly.
func SetUserID(c *gin.Context, userID int64) {
	c.Set(userIDKey, userID)
}
