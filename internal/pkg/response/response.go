// Package response writes the {code, message, data} envelope. Replies are
// always HTTP 200; a failure carries a non-zero errcode.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type apiError struct {
	code int
	msg  string
}

func (e *apiError) Error() string {
	return e.msg
}

func (e *apiError) Code() uint32 {
	return uint32(e.code)
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes the failure envelope and aborts the handler chain.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, &apiError{code: code, msg: message})
}

// FailedCode returns the code written by Error for this request, if any.
func FailedCode(c *gin.Context) (int, bool) {
	var ae *apiError
	if err := proxyutil.GetReplyErrInfo(c); err != nil && errors.As(err, &ae) {
		return ae.code, true
	}
	return 0, false
}
