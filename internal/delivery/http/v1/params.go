package v1

import (
	"strconv"

	"career-gap-web/pkg/apperror"

	"github.com/gin-gonic/gin"
)

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.BadRequest("Invalid ID")
	}
	return id, nil
}

func bindJSON(c *gin.Context, out interface{}) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	return nil
}
