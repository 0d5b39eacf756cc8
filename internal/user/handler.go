package handler

import (
	"encoding/json"
	"net/http"

	"cratetrack/internal/apperr"
	"cratetrack/internal/user/model"
	"cratetrack/internal/user/service"
	"cratetrack/pkg/logger"
	"cratetrack/pkg/validate"
)

type UserHandler struct {
	Service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Name, a valid email, and a password of at least 6 characters are required", http.StatusBadRequest)
		return
	}

	session, err := h.Service.Register(req)
	if err != nil {
		logger.Sugar.Warnf("Handler: registration failed for %s: %v", req.Email, err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	session, err := h.Service.Login(req)
	if err != nil {
		logger.Sugar.Warnf("Handler: login failed for %s: %v", req.Email, err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profiles, err := h.Service.List()
	if err != nil {
		logger.Sugar.Errorf("Handler: failed to list users: %v", err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profiles)
}

func (h *UserHandler) ToggleRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.ToggleRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Missing user_id", http.StatusBadRequest)
		return
	}

	if err := h.Service.ToggleRole(req.UserID); err != nil {
		logger.Sugar.Errorf("Handler: failed to toggle role for user %s: %v", req.UserID, err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User role updated"))
}
