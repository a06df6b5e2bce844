package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/roles"
)

// Server is the thin JSON surface over the credential service. All
// credential semantics live below it; handlers only translate requests
// and outcomes.
type Server struct {
	mux         *http.ServeMux
	config      config.Config
	credentials *auth.CredentialService
	roles       *roles.Service
	logger      zerolog.Logger
}

func New(cfg config.Config, credentials *auth.CredentialService, roleService *roles.Service, logger zerolog.Logger) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		config:      cfg,
		credentials: credentials,
		roles:       roleService,
		logger:      logger,
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	middleware := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}

	s.mux.HandleFunc("POST /api/v1/authentication/sign-in", ChainMiddleware(s.signInHandler, middleware...))
	s.mux.HandleFunc("POST /api/v1/authentication/refresh-token", ChainMiddleware(s.refreshTokenHandler, middleware...))
	s.mux.HandleFunc("GET /api/v1/authentication/validate-token", ChainMiddleware(s.validateTokenHandler, middleware...))
	s.mux.HandleFunc("POST /api/v1/authentication/send-reset-password-code", ChainMiddleware(s.sendResetCodeHandler, middleware...))
	s.mux.HandleFunc("POST /api/v1/authentication/confirm-reset-password", ChainMiddleware(s.confirmResetCodeHandler, middleware...))
	s.mux.HandleFunc("POST /api/v1/authentication/reset-password", ChainMiddleware(s.resetPasswordHandler, middleware...))
	s.mux.HandleFunc("GET /api/v1/authentication/confirm-email", ChainMiddleware(s.confirmEmailHandler, middleware...))
	s.mux.HandleFunc("GET /api/v1/authorization/roles", ChainMiddleware(s.listRolesHandler, middleware...))
	s.mux.HandleFunc("POST /api/v1/authorization/roles", ChainMiddleware(s.addRoleHandler, middleware...))
}

// ChainMiddleware applies middleware in reverse order so the first one
// listed runs outermost.
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}
