package gin

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"go.uber.org/zap"

	httpserver "git.dzz.com/wisegin/transport/http"
)

const (
	jsonType   = "application/json"
	textType   = "text/plain"
	binaryType = "application/octet-stream"

	responseKey = "wisegin_response"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func defaultFormatters() map[string]httpserver.Formatter {
	return map[string]httpserver.Formatter{
		jsonType:   json.Marshal,
		textType:   formatText,
		binaryType: formatBinary,
	}
}

func formatText(body any) ([]byte, error) {
	switch v := body.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	default:
		return []byte(fmt.Sprint(v)), nil
	}
}

func formatBinary(body any) ([]byte, error) {
	switch v := body.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("gin: cannot format %T as %s", body, binaryType)
	}
}

// offers lists formatter content types, JSON first when present.
func offers(formatters map[string]httpserver.Formatter) []string {
	keys := lo.Without(lo.Keys(formatters), jsonType)
	slices.Sort(keys)
	if _, ok := formatters[jsonType]; ok {
		return append([]string{jsonType}, keys...)
	}
	return keys
}

func contentType(ct string) string {
	if ct == jsonType || strings.HasPrefix(ct, "text/") {
		return ct + "; charset=utf-8"
	}
	return ct
}

// errorBody is the wire form of an error sent as a response body.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (b errorBody) String() string { return b.Message }

func newErrorBody(status int, err error) errorBody {
	code := strings.ReplaceAll(http.StatusText(status), " ", "")
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		code = coded.ErrorCode()
	}
	return errorBody{Code: code, Message: err.Error()}
}

// response is shared by every handler of one request.
type response struct {
	gin.ResponseWriter
	c      *gin.Context
	engine *Engine
}

func (e *Engine) response(c *gin.Context) *response {
	if v, ok := c.Get(responseKey); ok {
		if r, ok := v.(*response); ok {
			return r
		}
	}
	r := &response{ResponseWriter: c.Writer, c: c, engine: e}
	c.Set(responseKey, r)
	return r
}

// Send writes body with the formatter negotiated from Accept, falling back
// to the first offered type. A nil body writes only the status.
func (r *response) Send(code int, body any) {
	if body == nil {
		r.c.Status(code)
		r.c.Writer.WriteHeaderNow()
		return
	}
	if err, ok := body.(error); ok {
		body = newErrorBody(code, err)
	}

	offered := r.engine.offers
	if len(offered) == 0 {
		r.engine.log.Error("no response formatters configured")
		r.c.Status(http.StatusNotAcceptable)
		r.c.Writer.WriteHeaderNow()
		return
	}
	ct := r.c.NegotiateFormat(offered...)
	if ct == "" {
		ct = offered[0]
	}
	data, err := r.engine.formatters[ct](body)
	if err != nil {
		r.engine.log.Warn("format response", zap.String("content-type", ct), zap.Error(err))
		if ct, data, err = r.engine.fallback(ct, body); err != nil {
			r.engine.log.Error("format response", zap.String("content-type", ct), zap.Error(err))
			r.c.Status(http.StatusInternalServerError)
			r.c.Writer.WriteHeaderNow()
			return
		}
	}
	r.c.Data(code, contentType(ct), data)
}

// fallback formats body with JSON, then text, skipping the type that failed.
func (e *Engine) fallback(failed string, body any) (string, []byte, error) {
	err := fmt.Errorf("gin: no fallback formatter for %T", body)
	for _, ct := range []string{jsonType, textType} {
		f, ok := e.formatters[ct]
		if !ok || ct == failed {
			continue
		}
		var data []byte
		if data, err = f(body); err == nil {
			return ct, data, nil
		}
	}
	return failed, nil, err
}

// Upgrade hands the connection to a websocket session.
func (r *response) Upgrade() (*websocket.Conn, error) {
	if r.engine.upgrader == nil {
		return nil, httpserver.ErrUpgradesDisabled
	}
	return r.engine.upgrader.Upgrade(r.c.Writer, r.c.Request, nil)
}

var _ httpserver.Response = (*response)(nil)
