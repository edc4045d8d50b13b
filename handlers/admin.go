package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"willdraft-go/models"
)

func (h *Handlers) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)

	q := h.db.WithContext(r.Context()).Preload("User")
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if action := r.URL.Query().Get("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	var auditLogs []models.AuditLog
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&auditLogs).Error; err != nil {
		h.log.Error("fetch audit logs failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Failed to fetch audit logs", nil)
		return
	}
	sendJSON(w, http.StatusOK, auditLogs)
}

func (h *Handlers) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 20)

	var users []models.User
	if err := h.db.WithContext(r.Context()).
		Select("id, email, phone, first_name, last_name, is_active, is_admin, created_at, updated_at").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		h.log.Error("fetch users failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Failed to fetch users", nil)
		return
	}
	sendJSON(w, http.StatusOK, users)
}
