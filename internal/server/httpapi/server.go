// Package httpapi is the JSON-over-HTTP front of the account service. URLs
// live under /api/<version>/user/ and keep their trailing slashes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// AccountService is what the handlers need from services.AccountService.
type AccountService interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.Account, error)
	VerifyEmail(ctx context.Context, encodedID, token string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	RefreshSession(ctx context.Context, refreshToken string) (*auth.SessionPair, error)
	Authenticate(ctx context.Context, accessToken string) (*models.Account, error)
	GetProfile(ctx context.Context, accountID int64) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID int64, patch models.ProfilePatch) (*models.Account, error)
	DeleteAccount(ctx context.Context, accountID int64) error
	RequestAvatarUpload(ctx context.Context, accountID int64) (*services.AvatarUpload, error)
	AvatarURL(ctx context.Context, a *models.Account) (string, error)
	ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, encodedID, token, newPassword string) error
}

type Options struct {
	Address         string
	APIVersion      string
	ShutdownTimeout time.Duration
	// MaskUnknownResetEmail answers reset requests for unknown emails as if
	// a mail had been sent.
	MaskUnknownResetEmail bool
	// RateLimiter guards the unauthenticated endpoints. Nil disables it.
	RateLimiter middleware.RateLimiterStore
}

type Server struct {
	echo   *echo.Echo
	opts   Options
	svc    AccountService
	logger logging.Logger
}

func NewServer(svc AccountService, l logging.Logger, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		echo:   echo.New(),
		opts:   opts,
		svc:    svc,
		logger: l.With("module", "http_server"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError

	s.routes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() {
	e := s.echo
	e.Pre(middleware.AddTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())

	e.GET("/healthz/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := e.Group("/api/" + s.opts.APIVersion + "/user")

	public := []echo.MiddlewareFunc{}
	if s.opts.RateLimiter != nil {
		public = append(public, s.rateLimiter(s.opts.RateLimiter))
	}
	private := []echo.MiddlewareFunc{s.requireAuth}

	g.POST("/signup/", s.signup, public...)
	g.POST("/login/", s.login, public...)
	g.POST("/token/refresh/", s.refresh, public...)
	g.GET("/verify-email/:uid/:token/", s.verifyEmail, public...)
	g.POST("/reset-password/", s.requestPasswordReset, public...)
	g.POST("/reset-password-confirm/:uid/:token/", s.confirmPasswordReset, public...)

	g.GET("/profile/", s.profile, private...)
	g.PUT("/profile/update/", s.updateProfile, private...)
	g.PATCH("/profile/update/", s.updateProfile, private...)
	g.DELETE("/profile/update/", s.deleteAccount, private...)
	g.POST("/profile/avatar/", s.avatarUpload, private...)
	g.POST("/change-password/", s.changePassword, private...)
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		if err := s.echo.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
