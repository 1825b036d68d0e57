package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// NoStore marks the response as uncacheable. Progress and form payloads are
// per-applicant and change on every save.
func NoStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
