package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/goalsocial/backend/internal/middleware"
	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/services"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// getUserIDFromContext returns the authenticated user's id, or 0.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get(middleware.ContextUserKey).(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

func currentUser(c echo.Context) (uint, error) {
	id := getUserIDFromContext(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

func paramUint(c echo.Context, name, label string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+label)
	}
	return uint(v), nil
}

func paginationFromQuery(c echo.Context) services.Pagination {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return services.Pagination{Page: page, Limit: limit}.Normalize()
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}

// paged writes items under key with the pagination meta block.
func paged[T any](c echo.Context, key string, page services.Page[T]) error {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	totalPages := page.Pages()
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{key: items},
		"meta": echo.Map{
			"currentPage":     page.Page,
			"totalPages":      totalPages,
			"totalItems":      page.Total,
			"itemsPerPage":    page.Limit,
			"hasNextPage":     page.Page < totalPages,
			"hasPreviousPage": page.Page > 1,
		},
	})
}

// respondError maps service error kinds to HTTP errors. Access-denied
// responses never carry detail about the resource.
func respondError(err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrFollowRequestNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrAlreadyFollowing),
		errors.Is(err, services.ErrNotFollowing),
		errors.Is(err, services.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, services.ErrAccessDenied.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// NewHTTPErrorHandler renders every error as {success:false, error} and logs
// server-side failures.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, echo.Map{"success": false, "error": msg})
		}
		if writeErr != nil {
			logger.Warn("error response not written", zap.Error(writeErr))
		}
	}
}
