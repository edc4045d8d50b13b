package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"willdraft-go/document"
	"willdraft-go/lifecycle"
	"willdraft-go/will"
)

func (h *Handlers) ListWills(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	wills, err := h.lifecycle.List(r.Context(), userID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, wills)
}

type finalizeRequest struct {
	ClearDraft bool `json:"clearDraft"`
}

// FinalizeWill snapshots the working draft as the user's next version.
func (h *Handlers) FinalizeWill(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req finalizeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}

	d, degraded := h.lifecycle.GetDraft(r.Context(), userID)
	if degraded {
		sendError(w, http.StatusServiceUnavailable, "Your draft could not be loaded. Please try again.", nil)
		return
	}

	res := h.lifecycle.Finalize(r.Context(), userID, d, lifecycle.FinalizeOptions{ClearDraft: req.ClearDraft})
	if !res.OK {
		sendError(w, http.StatusInternalServerError, res.Message, nil)
		return
	}
	h.logAudit(&userID, "CREATE", "WILL", fmt.Sprintf("Will %s finalized as version %d", res.WillID, res.Version), r)
	sendJSON(w, http.StatusCreated, res)
}

func (h *Handlers) GetWill(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	fw, err := h.lifecycle.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, fw)
}

func (h *Handlers) UpdateWill(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var d will.Draft
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&d); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	willID := mux.Vars(r)["id"]
	res := h.lifecycle.Update(r.Context(), userID, willID, d)
	if !res.OK {
		status := http.StatusInternalServerError
		if res.Message == lifecycle.MsgUpdateFailed {
			status = http.StatusNotFound
		}
		sendError(w, status, res.Message, nil)
		return
	}
	h.logAudit(&userID, "UPDATE", "WILL", "Will "+willID+" updated", r)
	sendJSON(w, http.StatusOK, res)
}

func (h *Handlers) WillDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	fw, err := h.lifecycle.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendDocument(w, r, document.Render(fw.Draft, h.now()))
}

type exportRequest struct {
	Filename string `json:"filename"`
}

// ExportWill renders a finalized will to a one-page PDF and stores it.
func (h *Handlers) ExportWill(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req exportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}

	fw, err := h.lifecycle.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	if req.Filename == "" {
		req.Filename = "will-v" + strconv.Itoa(fw.Version)
	}

	res, err := h.exporter.Export(r.Context(), userID, fw.ID, document.Render(fw.Draft, h.now()), req.Filename)
	if err != nil {
		h.log.Error("export will failed", zap.String("will_id", fw.ID), zap.Error(err))
		sendError(w, http.StatusBadGateway, "The document could not be exported. Please try again.", nil)
		return
	}
	h.logAudit(&userID, "EXPORT", "WILL", "Will "+fw.ID+" exported as "+res.Export.Filename, r)
	sendJSON(w, http.StatusCreated, res)
}

func (h *Handlers) DownloadExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	rec, body, err := h.exporter.Open(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, document.ErrObjectNotFound) {
			sendError(w, http.StatusGone, "The exported file is no longer available", nil)
			return
		}
		h.sendDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn("download interrupted", zap.String("export_id", rec.ID), zap.Error(err))
	}
}
