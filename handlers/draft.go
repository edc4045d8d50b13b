package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"willdraft-go/document"
	"willdraft-go/will"
)

const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return nil, false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	return body, true
}

// GetDraft returns the working draft. "degraded" is true when storage could
// not be reached and the draft shown is the empty default.
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	d, degraded := h.lifecycle.GetDraft(r.Context(), userID)
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"draft":    d,
		"degraded": degraded,
	})
}

func (h *Handlers) PutDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var d will.Draft
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&d); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.lifecycle.UpdateDraft(r.Context(), userID, d); err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"message": "Draft saved"})
}

func (h *Handlers) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.lifecycle.DeleteDraft(r.Context(), userID); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.logAudit(&userID, "DELETE", "DRAFT", "Working draft deleted", r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	raw, err := h.store.GetSection(r.Context(), userID, will.Section(mux.Vars(r)["section"]))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendRawJSON(w, raw)
}

// PutSection saves a section as submitted, without step validation.
func (h *Handlers) PutSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	sec := will.Section(mux.Vars(r)["section"])
	if err := h.store.PutSection(r.Context(), userID, sec, body); err != nil {
		h.sendDomainError(w, err)
		return
	}
	raw, err := h.store.GetSection(r.Context(), userID, sec)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendRawJSON(w, raw)
}

func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListItems(r.Context(), userID, will.Section(mux.Vars(r)["list"]))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, items)
}

func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	h.putItem(w, r, "")
}

func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	h.putItem(w, r, mux.Vars(r)["id"])
}

// putItem validates one modal entry for its list and stores it. Allocations
// go through the navigator so the per-asset total is checked against the
// rest of the draft.
func (h *Handlers) putItem(w http.ResponseWriter, r *http.Request, itemID string) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	sec := will.Section(mux.Vars(r)["list"])
	ctx := r.Context()

	var (
		saved  interface{}
		status = http.StatusCreated
		err    error
	)
	if itemID != "" {
		status = http.StatusOK
	}

	switch sec {
	case will.SectionAllocations:
		var a will.Allocation
		if err := json.Unmarshal(body, &a); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if itemID != "" {
			a.ID = itemID
		}
		saved, err = h.navigator.PutAllocation(ctx, userID, a)

	case will.SectionAssets:
		var a will.Asset
		if err := json.Unmarshal(body, &a); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if err := will.ValidateAsset(a); err != nil {
			h.sendDomainError(w, err)
			return
		}
		saved, err = h.storeItem(r, userID, sec, itemID, a)

	case will.SectionBeneficiaries:
		var b will.Beneficiary
		if err := json.Unmarshal(body, &b); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if err := will.ValidateBeneficiary(b); err != nil {
			h.sendDomainError(w, err)
			return
		}
		saved, err = h.storeItem(r, userID, sec, itemID, b)

	default:
		// reports an unknown or non-list section
		_, err = h.store.ListItems(ctx, userID, sec)
	}
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	sendJSON(w, status, saved)
}

func (h *Handlers) storeItem(r *http.Request, userID string, sec will.Section, itemID string, item interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	if itemID == "" {
		return h.store.AddItem(r.Context(), userID, sec, raw)
	}
	return h.store.UpdateItem(r.Context(), userID, sec, itemID, raw)
}

func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.store.RemoveItem(r.Context(), userID, will.Section(vars["list"]), vars["id"]); err != nil {
		h.sendDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type beneficiaryOption struct {
	will.BeneficiaryOption
	Label string `json:"label"`
}

// BeneficiaryOptions lists every heir an allocation may name: explicit
// beneficiaries first, then the spouse and children from family details.
func (h *Handlers) BeneficiaryOptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	d, _ := h.lifecycle.GetDraft(r.Context(), userID)
	opts := will.BeneficiaryOptions(d.Beneficiaries, d.FamilyDetails)
	out := make([]beneficiaryOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, beneficiaryOption{BeneficiaryOption: o, Label: o.Label()})
	}
	sendJSON(w, http.StatusOK, out)
}

// Review returns the draft with resolved allocation names and any field
// errors that would block finalizing.
func (h *Handlers) Review(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	d, degraded := h.lifecycle.GetDraft(r.Context(), userID)

	var errs map[string]string
	if err := will.ValidateDraft(d, h.now()); err != nil {
		var ve *will.ValidationError
		if errors.As(err, &ve) {
			errs = ve.Fields
		} else {
			h.log.Warn("review validation failed", zap.Error(err))
		}
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"draft":       d,
		"allocations": will.ResolveAllocations(d),
		"errors":      errs,
		"complete":    len(errs) == 0,
		"degraded":    degraded,
	})
}

func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	d, _ := h.lifecycle.GetDraft(r.Context(), userID)
	h.sendDocument(w, r, document.Render(d, h.now()))
}

// sendDocument writes doc as JSON, or as plain text with ?format=text.
func (h *Handlers) sendDocument(w http.ResponseWriter, r *http.Request, doc document.Document) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, doc.Text())
		return
	}
	sendJSON(w, http.StatusOK, doc)
}
