package respond

import (
	"fmt"
	"net/http"
	"strconv"

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

// Attachment writes a binary body the browser should save as fileName.
func Attachment(c *gin.Context, fileName, contentType string, data []byte) {
	file(c, "attachment", fileName, contentType, data)
}

// Inline writes a binary body the browser should display in place.
func Inline(c *gin.Context, fileName, contentType string, data []byte) {
	file(c, "inline", fileName, contentType, data)
}

func file(c *gin.Context, disposition, fileName, contentType string, data []byte) {
	h := c.Writer.Header()
	h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, fileName))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, data)
}
