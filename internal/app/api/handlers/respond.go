package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/nextdigitalzone/jobdesk/internal/app/api/middleware"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/response"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

var nopLog = zap.NewNop().Sugar()

func ok[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, response.OKT(data))
}

// fail maps a domain error to its status and envelope code. Internal
// causes stay in the log; the caller sees only the public message.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logctx.FromGin(c, nopLog).Errorw("request_failed", "kind", kind, "error", err.Error())
	}
	c.JSON(status, response.ErrorMsg(response.CodeForHTTPStatus(status), apperr.PublicMessage(err)))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
}

// actor is set by the auth middleware on every protected route.
func actor(c *gin.Context) types.Actor {
	a, _ := mw.ActorFrom(c)
	return a
}

// bindOptionalJSON binds the body when one was sent.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
