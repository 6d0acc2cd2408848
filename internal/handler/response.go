package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"localbiz/internal/auth"
	"localbiz/internal/errors"
	"localbiz/internal/middleware"
	"localbiz/internal/model"
	"localbiz/internal/repository"
)

// Response is the success envelope shared by every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PageMeta   `json:"meta,omitempty"`
}

// PageMeta describes the window a listing returned.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

func newPageMeta(page repository.Page, total int64) *PageMeta {
	page = page.Normalize()
	pages := int((total + int64(page.Limit) - 1) / int64(page.Limit))
	return &PageMeta{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: pages,
		HasMore:    page.Page < pages,
	}
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func paged(c echo.Context, data interface{}, page repository.Page, total int64) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: newPageMeta(page, total)})
}

// bind decodes and validates a request body. Both failures are validation errors.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid request body", errors.ErrValidation)
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errors.ErrValidation, name)
	}
	return id, nil
}

func queryID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", errors.ErrValidation, name)
	}
	return &id, nil
}

func pageFrom(c echo.Context) repository.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return repository.Page{Page: page, Limit: limit}.Normalize()
}

func currentUser(c echo.Context) (*auth.Identity, error) {
	identity, found := middleware.IdentityFrom(c)
	if !found {
		return nil, errors.ErrUnauthorized
	}
	return identity, nil
}

// seesInactive reports whether the optional caller of a public listing is an admin,
// who also gets deactivated catalog entries.
func seesInactive(c echo.Context) bool {
	identity, found := middleware.IdentityFrom(c)
	return found && identity.Role == model.RoleAdmin
}

// ErrorHandler renders every error in the failure envelope. Internal error detail is
// only exposed outside production.
func ErrorHandler(logger *zap.Logger, exposeInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *errors.HTTPError
		if he, isEcho := err.(*echo.HTTPError); isEcho {
			httpErr = fromEchoError(he)
		} else {
			httpErr = errors.MapErrorToHTTP(err, exposeInternal)
		}

		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.Error("request error",
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.StatusCode)
		} else {
			err = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		if err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}

// fromEchoError converts errors raised by echo itself, such as unknown routes.
func fromEchoError(he *echo.HTTPError) *errors.HTTPError {
	message := http.StatusText(he.Code)
	if m, isString := he.Message.(string); isString && m != "" {
		message = m
	}
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
	if code == "" {
		code = "HTTP_ERROR"
	}
	return errors.NewHTTPError(he.Code, message, code)
}
