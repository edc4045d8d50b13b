package handlers

import (
	"github.com/gorilla/mux"

	"willdraft-go/middleware"
)

// Routes registers every endpoint on r. Global middleware such as CORS and
// rate limiting is left to the caller.
func (h *Handlers) Routes(r *mux.Router) {
	// Public routes
	r.HandleFunc("/api/register", h.Register).Methods("POST")
	r.HandleFunc("/api/login", h.Login).Methods("POST")
	r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.JWTAuth(h.log))

	protected.HandleFunc("/user/profile", h.GetProfile).Methods("GET")
	protected.HandleFunc("/user/profile", h.UpdateProfile).Methods("PUT")

	protected.HandleFunc("/draft", h.GetDraft).Methods("GET")
	protected.HandleFunc("/draft", h.PutDraft).Methods("PUT")
	protected.HandleFunc("/draft", h.DeleteDraft).Methods("DELETE")
	protected.HandleFunc("/draft/sections/{section}", h.GetSection).Methods("GET")
	protected.HandleFunc("/draft/sections/{section}", h.PutSection).Methods("PUT")
	protected.HandleFunc("/draft/items/{list}", h.ListItems).Methods("GET")
	protected.HandleFunc("/draft/items/{list}", h.AddItem).Methods("POST")
	protected.HandleFunc("/draft/items/{list}/{id}", h.UpdateItem).Methods("PUT")
	protected.HandleFunc("/draft/items/{list}/{id}", h.RemoveItem).Methods("DELETE")
	protected.HandleFunc("/draft/beneficiary-options", h.BeneficiaryOptions).Methods("GET")
	protected.HandleFunc("/draft/review", h.Review).Methods("GET")
	protected.HandleFunc("/draft/preview", h.Preview).Methods("GET")

	protected.HandleFunc("/wizard/steps", h.WizardSteps).Methods("GET")
	protected.HandleFunc("/wizard/{step}", h.WizardGoTo).Methods("GET")
	protected.HandleFunc("/wizard/{step}/next", h.WizardNext).Methods("POST")
	protected.HandleFunc("/wizard/{step}/previous", h.WizardPrevious).Methods("POST")
	protected.HandleFunc("/wizard/{step}/save-exit", h.WizardSaveAndExit).Methods("POST")

	protected.HandleFunc("/wills", h.ListWills).Methods("GET")
	protected.HandleFunc("/wills", h.FinalizeWill).Methods("POST")
	protected.HandleFunc("/wills/{id}", h.GetWill).Methods("GET")
	protected.HandleFunc("/wills/{id}", h.UpdateWill).Methods("PUT")
	protected.HandleFunc("/wills/{id}/document", h.WillDocument).Methods("GET")
	protected.HandleFunc("/wills/{id}/export", h.ExportWill).Methods("POST")
	protected.HandleFunc("/exports/{id}/download", h.DownloadExport).Methods("GET")

	protected.HandleFunc("/chat", h.Chat).Methods("POST")

	// Admin routes
	adminRoutes := protected.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(middleware.AdminAuth(h.log))
	adminRoutes.HandleFunc("/audit-logs", h.GetAuditLogs).Methods("GET")
	adminRoutes.HandleFunc("/users", h.GetAllUsers).Methods("GET")
}
