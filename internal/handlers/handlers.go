package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/logger"
	"minischeduler/internal/middleware"
	"minischeduler/internal/models"
	"minischeduler/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// fail logs unexpected errors and writes the error body.
func fail(c *gin.Context, err error) {
	if apperrors.KindOf(err) == apperrors.KindStorageFailure {
		logger.WithContext(c.Request.Context()).Error("Request failed",
			"error", err,
			"path", c.FullPath())
		_ = c.Error(err)
	}
	middleware.Abort(c, err)
}

// caller returns the authenticated identity or aborts with 401.
func caller(c *gin.Context) (models.Caller, bool) {
	who, ok := middleware.Caller(c)
	if !ok {
		fail(c, apperrors.ErrUnauthorized)
	}
	return who, ok
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperrors.Malformed(name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

// yearMonth reads the optional year and month query parameters. Both or
// neither must be present.
func yearMonth(c *gin.Context) (*models.YearMonth, bool) {
	yearStr, monthStr := c.Query("year"), c.Query("month")
	if yearStr == "" && monthStr == "" {
		return nil, true
	}
	if yearStr == "" || monthStr == "" {
		fail(c, apperrors.Malformed("year and month must be given together"))
		return nil, false
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		fail(c, apperrors.Malformed("year must be a number"))
		return nil, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		fail(c, apperrors.Malformed("month must be a number"))
		return nil, false
	}

	ym, err := models.NewYearMonth(year, month)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return &ym, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperrors.Malformed(err.Error()))
		return false
	}
	return true
}
