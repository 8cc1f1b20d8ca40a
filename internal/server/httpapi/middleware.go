package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const accountKey = "account"

func newRequestID() string {
	return uuid.NewString()
}

// requireAuth resolves the bearer access token and stores the account on
// the context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		scheme, token, ok := strings.Cut(c.Request().Header.Get(common.AuthorizationHeaderName), " ")
		if !ok || !strings.EqualFold(scheme, common.BearerScheme) || strings.TrimSpace(token) == "" {
			return c.JSON(http.StatusUnauthorized, detail("Authentication credentials were not provided."))
		}

		account, err := s.svc.Authenticate(c.Request().Context(), strings.TrimSpace(token))
		if err != nil {
			return err
		}

		c.Set(accountKey, account)
		return next(c)
	}
}

func currentAccount(c echo.Context) *models.Account {
	a, _ := c.Get(accountKey).(*models.Account)
	return a
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if a := currentAccount(c); a != nil {
				args = append(args, "account_id", a.ID)
			}
			s.logger.Info(c.Request().Context(), "request", args...)
			return nil
		},
	})
}

func (s *Server) rateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, detail("Unable to identify client."))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if err != nil {
				s.logger.Error(c.Request().Context(), "rate limit store failed", "error", err)
				return err
			}
			return c.JSON(http.StatusTooManyRequests, detail("Request was throttled."))
		},
	})
}

// NewMemoryRateLimiter allows perMinute requests per client with the given
// burst, tracked in process memory.
func NewMemoryRateLimiter(perMinute, burst int) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
}
