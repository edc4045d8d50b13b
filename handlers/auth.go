package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"willdraft-go/models"
	"willdraft-go/utils"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = utils.SanitizeString(req.FirstName)
	req.LastName = utils.SanitizeString(req.LastName)

	if err := utils.ValidateStruct(req); err != nil {
		sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
		return
	}

	// Check if user already exists
	var existing int64
	if err := h.db.WithContext(r.Context()).Model(&models.User{}).
		Where("email = ? OR phone = ?", req.Email, req.Phone).
		Count(&existing).Error; err != nil {
		h.log.Error("lookup existing user failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Database error", nil)
		return
	}
	if existing > 0 {
		sendError(w, http.StatusConflict, "User already exists", nil)
		return
	}

	isAdmin := false
	if req.AdminCode != "" {
		if req.AdminCode != h.config.AdminCode {
			h.log.Warn("invalid admin code on registration", zap.String("email", req.Email))
			sendError(w, http.StatusBadRequest, "Invalid admin code", nil)
			return
		}
		isAdmin = true
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Failed to hash password", nil)
		return
	}

	user := models.User{
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  hashedPassword,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
		IsAdmin:   isAdmin,
	}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		h.log.Error("create user failed", zap.String("email", req.Email), zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Failed to create user", nil)
		return
	}

	h.log.Info("user registered", zap.String("user_id", user.ID), zap.Bool("is_admin", user.IsAdmin))

	auditDetails := "User registered"
	if isAdmin {
		auditDetails = "Admin user registered with admin code"
	}
	h.logAudit(&user.ID, "CREATE", "USER", auditDetails, r)

	response := map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	}
	if isAdmin {
		response["admin_status"] = "Admin privileges granted"
	}
	sendJSON(w, http.StatusCreated, response)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := utils.ValidateStruct(req); err != nil {
		sendError(w, http.StatusBadRequest, "Validation failed", utils.FormatValidationError(err))
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		h.log.Error("login lookup failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Database error", nil)
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		h.log.Info("login with wrong password", zap.String("user_id", user.ID))
		sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	if !user.IsActive {
		sendError(w, http.StatusForbidden, "Account is deactivated", nil)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		h.log.Error("generate token failed", zap.String("user_id", user.ID), zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Failed to generate token", nil)
		return
	}

	h.logAudit(&user.ID, "LOGIN", "AUTH", "User logged in", r)

	sendJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}
