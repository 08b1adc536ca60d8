package gin

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-version"
	"go.uber.org/zap"

	"git.dzz.com/wisegin/library/xgo"
	httpserver "git.dzz.com/wisegin/transport/http"
)

func (e *Engine) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	e.log.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
		zap.String("client", c.ClientIP()),
	)
}

// recovery emits panics to the uncaught exception listeners. The chain is
// aborted afterwards and answered with 500 if no listener wrote a response.
func (e *Engine) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		err := xgo.PanicError(recovered)
		route := httpserver.RouteInfo{
			Method:  c.Request.Method,
			Path:    c.FullPath(),
			Handler: c.HandlerName(),
		}
		e.log.Error("uncaught exception",
			zap.String("method", route.Method),
			zap.String("route", route.Path),
			zap.Error(err),
			zap.Stack("stack"))

		e.uncaught.Emit(exception{req: c.Request, res: e.response(c), route: route, err: err})
		if !c.Writer.Written() {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Abort()
	})
}

// respondErrors sends the last error recorded through next unless a
// response was already written.
func (e *Engine) respondErrors(c *gin.Context) {
	c.Next()
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err
	e.response(c).Send(statusOf(err), err)
}

func statusOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= http.StatusBadRequest {
			return code
		}
	}
	return http.StatusInternalServerError
}

func serverHeader(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Server", name)
	}
}

// versionError rejects a request whose Accept-Version the server cannot satisfy.
type versionError struct {
	accept string
	have   *version.Version
}

func (e *versionError) Error() string {
	return fmt.Sprintf("%s is not supported by this server (version %s)", e.accept, e.have)
}

func (e *versionError) StatusCode() int   { return http.StatusBadRequest }
func (e *versionError) ErrorCode() string { return "InvalidVersion" }

// checkVersion matches Accept-Version as a go-version constraint
// ("1.2.3", ">= 1.0, < 2.0", "~> 1.2"). Empty and "*" match anything.
func (e *Engine) checkVersion(c *gin.Context) {
	accept := strings.TrimSpace(c.GetHeader("Accept-Version"))
	if accept == "" || accept == "*" {
		return
	}
	cs, err := version.NewConstraint(accept)
	if err == nil && cs.Check(e.version) {
		return
	}
	_ = c.Error(&versionError{accept: accept, have: e.version})
	c.Abort()
}
