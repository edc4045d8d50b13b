package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"willdraft-go/wizard"
)

type stepView struct {
	Step    wizard.Step `json:"step"`
	Title   string      `json:"title"`
	Index   int         `json:"index"`
	Section string      `json:"section,omitempty"`
}

func viewOf(s wizard.Step) stepView {
	sec, _ := s.Section()
	return stepView{Step: s, Title: s.Title(), Index: s.Index(), Section: string(sec)}
}

func (h *Handlers) WizardSteps(w http.ResponseWriter, r *http.Request) {
	out := make([]stepView, 0, len(wizard.Steps))
	for _, s := range wizard.Steps {
		out = append(out, viewOf(s))
	}
	sendJSON(w, http.StatusOK, out)
}

// WizardGoTo jumps straight to a step and returns what is stored for it.
func (h *Handlers) WizardGoTo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	out, err := h.navigator.GoTo(wizard.Step(mux.Vars(r)["step"]))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	resp := map[string]interface{}{"outcome": out, "step": viewOf(out.Step)}
	if sec, ok := out.Step.Section(); ok {
		raw, err := h.store.GetSection(r.Context(), userID, sec)
		if err != nil {
			h.sendDomainError(w, err)
			return
		}
		resp["data"] = raw
	}
	sendJSON(w, http.StatusOK, resp)
}

type stepMove func(ctx context.Context, userID string, step wizard.Step, payload json.RawMessage) (wizard.Outcome, error)

func (h *Handlers) WizardNext(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.navigator.Next)
}

func (h *Handlers) WizardPrevious(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.navigator.Previous)
}

func (h *Handlers) WizardSaveAndExit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.navigator.SaveAndExit)
}

// transition answers 422 when field errors kept the user on the step.
// Save failures still answer 200; the outcome carries saveError.
func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, move stepMove) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	out, err := move(r.Context(), userID, wizard.Step(mux.Vars(r)["step"]), body)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	status := http.StatusOK
	if len(out.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	sendJSON(w, status, out)
}
