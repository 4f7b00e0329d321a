package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxDecompressedBody bounds the size of a gzip encoded request body once inflated.
const MaxDecompressedBody = 1 << 20

// DecompressRequest transparently handles gzip encoded requests.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasGzipEncoding(c.GetHeader("Content-Encoding")) {
			c.Next()
			return
		}

		originalBody := c.Request.Body
		reader, err := gzip.NewReader(originalBody)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid gzip body"})
			return
		}
		defer reader.Close()
		defer originalBody.Close()

		c.Request.Body = http.MaxBytesReader(c.Writer, reader, MaxDecompressedBody)
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}

func hasGzipEncoding(header string) bool {
	for _, token := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(token), "gzip") {
			return true
		}
	}
	return false
}
