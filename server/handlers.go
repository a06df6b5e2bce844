package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/roles"
	"github.com/jrsteele09/go-credential-service/token"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type confirmResetRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addRoleRequest struct {
	Name string `json:"name"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type validationResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type refreshResponse struct {
	Status      string             `json:"status"`
	Credentials *token.Credentials `json:"credentials,omitempty"`
}

func (s *Server) signInHandler(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	credentials, err := s.credentials.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		s.logger.Error().Err(err).Msg("sign-in failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, credentials)
}

func (s *Server) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	credentials, status, err := s.credentials.Refresh(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		s.logger.Error().Err(err).Msg("refresh failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	httpStatus := http.StatusOK
	if status != token.RefreshAccepted {
		httpStatus = http.StatusUnauthorized
	}
	s.writeJSON(w, httpStatus, refreshResponse{Status: status.String(), Credentials: credentials})
}

func (s *Server) validateTokenHandler(w http.ResponseWriter, r *http.Request) {
	accessToken := bearerToken(r)
	if accessToken == "" {
		accessToken = r.URL.Query().Get("token")
	}
	if accessToken == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	result := s.credentials.Authorize(accessToken)
	httpStatus := http.StatusOK
	if result.Status != token.StatusValid {
		httpStatus = http.StatusUnauthorized
	}
	s.writeJSON(w, httpStatus, validationResponse{Status: result.Status.String(), Reason: result.Reason})
}

func (s *Server) sendResetCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := s.credentials.SendResetPasswordCode(r.Context(), req.Email)
	s.writeJSON(w, http.StatusOK, statusResponse{Status: outcome.String()})
}

func (s *Server) confirmResetCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := s.credentials.ConfirmResetPassword(r.Context(), req.Code, req.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("confirm reset password failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: outcome.String()})
}

func (s *Server) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := s.credentials.ResetPassword(r.Context(), req.Email, req.Password)
	s.writeJSON(w, http.StatusOK, statusResponse{Status: outcome.String()})
}

func (s *Server) confirmEmailHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid userId", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")

	outcome, err := s.credentials.ConfirmEmail(r.Context(), userID, code)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("confirm email failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: outcome.String()})
}

func (s *Server) listRolesHandler(w http.ResponseWriter, r *http.Request) {
	roleList, err := s.roles.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list roles failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, roleList)
}

func (s *Server) addRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req addRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	role, err := s.roles.Add(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, roles.ErrRoleExists) {
			http.Error(w, "role already exists", http.StatusConflict)
			return
		}
		s.logger.Error().Err(err).Msg("add role failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusCreated, role)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
