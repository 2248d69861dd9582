package gin

import (
	"net/http"

	"github.com/fwojciec/newsgrab"
	"github.com/gin-gonic/gin"
)

var codes = map[string]int{
	newsgrab.ECONFLICT: http.StatusConflict,
	newsgrab.EINVALID:  http.StatusBadRequest,
	newsgrab.ENOTFOUND: http.StatusNotFound,
}

// ErrorStatusCode returns the HTTP status for an error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// writeError writes err as a JSON body with the status matching its code.
// Internal errors are logged and reported without detail.
func (s *Server) writeError(c *gin.Context, err error) {
	code, message := newsgrab.ErrorCode(err), newsgrab.ErrorMessage(err)
	if code == newsgrab.EINTERNAL {
		s.logger().Error("api error", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	}
	c.AbortWithStatusJSON(ErrorStatusCode(code), gin.H{"error": message})
}
