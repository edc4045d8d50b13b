// Package wizard orders the draft sections into a linear questionnaire and
// implements its Next, Previous and Save & Exit transitions.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"willdraft-go/will"
)

type Step string

const (
	StepPersonalInfo    Step = "personal-info"
	StepFamilyDetails   Step = "family-details"
	StepAssets          Step = "assets"
	StepBeneficiaries   Step = "beneficiaries"
	StepAssetAllocation Step = "asset-allocation"
	StepExecutor        Step = "executor"
	StepReview          Step = "review"
)

// Steps is the fixed wizard order.
var Steps = []Step{
	StepPersonalInfo,
	StepFamilyDetails,
	StepAssets,
	StepBeneficiaries,
	StepAssetAllocation,
	StepExecutor,
	StepReview,
}

var stepInfo = map[Step]struct {
	title   string
	section will.Section
}{
	StepPersonalInfo:    {"Personal Information", will.SectionPersonalInfo},
	StepFamilyDetails:   {"Family Details", will.SectionFamilyDetails},
	StepAssets:          {"Assets", will.SectionAssets},
	StepBeneficiaries:   {"Beneficiaries", will.SectionBeneficiaries},
	StepAssetAllocation: {"Asset Allocation", will.SectionAllocations},
	StepExecutor:        {"Executor", will.SectionExecutor},
	StepReview:          {"Review", ""},
}

// RouteFinalize is returned by Next on the review step once the whole draft
// is valid.
const RouteFinalize = "finalize"

const (
	msgUnreadable = "Submitted data could not be read"
	msgNotSaved   = "Your progress could not be saved. Please try again."
	msgNotLoaded  = "Your draft could not be loaded. Please try again."
)

var ErrUnknownStep = errors.New("unknown wizard step")

func ParseStep(s string) (Step, error) {
	if _, ok := stepInfo[Step(s)]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
	}
	return Step(s), nil
}

func (s Step) Title() string { return stepInfo[s].title }

// Section is the draft section edited on this step; review has none.
func (s Step) Section() (will.Section, bool) {
	sec := stepInfo[s].section
	return sec, sec != ""
}

func (s Step) Index() int {
	for i, st := range Steps {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Step) next() Step {
	if i := s.Index(); i >= 0 && i < len(Steps)-1 {
		return Steps[i+1]
	}
	return s
}

func (s Step) previous() Step {
	if i := s.Index(); i > 0 {
		return Steps[i-1]
	}
	return s
}

// Outcome tells the caller which step to show after a transition.
// Navigation and persistence are reported separately: SaveError can be set
// on an outcome that still advanced.
type Outcome struct {
	Step      Step              `json:"step"`
	Route     string            `json:"route,omitempty"`
	Advanced  bool              `json:"advanced"`
	Saved     bool              `json:"saved"`
	Errors    map[string]string `json:"errors,omitempty"`
	SaveError string            `json:"saveError,omitempty"`
}

// DraftStore is the subset of the entity store the navigator writes through.
type DraftStore interface {
	LoadDraft(ctx context.Context, userID string) (will.Draft, error)
	PutSection(ctx context.Context, userID string, sec will.Section, payload json.RawMessage) error
	AddItem(ctx context.Context, userID string, sec will.Section, item json.RawMessage) (json.RawMessage, error)
	UpdateItem(ctx context.Context, userID string, sec will.Section, itemID string, item json.RawMessage) (json.RawMessage, error)
}

type Navigator struct {
	drafts    DraftStore
	dashboard string
	log       *zap.Logger
	now       func() time.Time
}

func NewNavigator(drafts DraftStore, dashboardPath string, log *zap.Logger) *Navigator {
	if log == nil {
		log = zap.NewNop()
	}
	if dashboardPath == "" {
		dashboardPath = "/dashboard"
	}
	return &Navigator{drafts: drafts, dashboard: dashboardPath, log: log, now: time.Now}
}

// GoTo addresses any step directly. Data for steps not yet visited is
// whatever the store holds, usually the default.
func (n *Navigator) GoTo(step Step) (Outcome, error) {
	if _, err := ParseStep(string(step)); err != nil {
		return Outcome{}, err
	}
	return Outcome{Step: step}, nil
}

// Next validates payload for step. Invalid input keeps the user on the step
// with field errors; valid input is persisted and the wizard advances even
// if that write fails.
func (n *Navigator) Next(ctx context.Context, userID string, step Step, payload json.RawMessage) (Outcome, error) {
	if _, err := ParseStep(string(step)); err != nil {
		return Outcome{}, err
	}
	if step == StepReview {
		return n.review(ctx, userID)
	}

	sec, _ := step.Section()
	normalized, err := n.validate(ctx, userID, step, payload)
	if err != nil {
		var ve *will.ValidationError
		switch {
		case errors.As(err, &ve):
			return Outcome{Step: step, Errors: ve.Fields}, nil
		case errors.Is(err, errDraftLoad):
			return Outcome{Step: step, SaveError: msgNotLoaded}, nil
		default:
			return Outcome{Step: step, Errors: map[string]string{"form": msgUnreadable}}, nil
		}
	}

	out := Outcome{Step: step.next(), Advanced: true}
	n.persist(ctx, userID, sec, normalized, &out)
	return out, nil
}

// Previous saves whatever was submitted without validating it and moves one
// step back. It is never blocked by bad input.
func (n *Navigator) Previous(ctx context.Context, userID string, step Step, payload json.RawMessage) (Outcome, error) {
	if _, err := ParseStep(string(step)); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Step: step.previous(), Advanced: step.Index() > 0}
	n.bestEffort(ctx, userID, step, payload, &out)
	return out, nil
}

// SaveAndExit saves best-effort and routes to the dashboard.
func (n *Navigator) SaveAndExit(ctx context.Context, userID string, step Step, payload json.RawMessage) (Outcome, error) {
	if _, err := ParseStep(string(step)); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Step: step, Route: n.dashboard}
	n.bestEffort(ctx, userID, step, payload, &out)
	return out, nil
}

// PutAllocation adds or edits one allocation from the allocation modal,
// applying the same per-asset 100% rule as the allocation step.
func (n *Navigator) PutAllocation(ctx context.Context, userID string, a will.Allocation) (will.Allocation, error) {
	d, err := n.drafts.LoadDraft(ctx, userID)
	if err != nil {
		return will.Allocation{}, err
	}
	if err := will.ValidateAllocationChange(a, d); err != nil {
		return will.Allocation{}, err
	}

	raw, err := json.Marshal(a)
	if err != nil {
		return will.Allocation{}, err
	}
	if a.ID != "" {
		if _, ok := findAllocation(d.Allocations, a.ID); ok {
			raw, err = n.drafts.UpdateItem(ctx, userID, will.SectionAllocations, a.ID, raw)
		} else {
			raw, err = n.drafts.AddItem(ctx, userID, will.SectionAllocations, raw)
		}
	} else {
		raw, err = n.drafts.AddItem(ctx, userID, will.SectionAllocations, raw)
	}
	if err != nil {
		return will.Allocation{}, err
	}

	var saved will.Allocation
	if err := json.Unmarshal(raw, &saved); err != nil {
		return will.Allocation{}, err
	}
	return saved, nil
}

func findAllocation(list []will.Allocation, id string) (will.Allocation, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return will.Allocation{}, false
}

var errDraftLoad = errors.New("draft load failed")

// validate decodes payload into the step's section type, normalizes it and
// returns the JSON to persist.
func (n *Navigator) validate(ctx context.Context, userID string, step Step, payload json.RawMessage) (json.RawMessage, error) {
	switch step {
	case StepPersonalInfo:
		var p will.PersonalInfo
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		if err := will.ValidatePersonalInfo(p, n.now()); err != nil {
			return nil, err
		}
		return json.Marshal(p)

	case StepFamilyDetails:
		var f will.FamilyDetails
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, err
		}
		f.ClearStaleSpouse()
		if f.Children == nil {
			f.Children = []will.Child{}
		}
		if err := will.ValidateFamilyDetails(f); err != nil {
			return nil, err
		}
		return json.Marshal(f)

	case StepAssets:
		var assets []will.Asset
		if err := json.Unmarshal(payload, &assets); err != nil {
			return nil, err
		}
		for i := range assets {
			if assets[i].ID == "" {
				assets[i].ID = uuid.NewString()
			}
		}
		if err := will.ValidateAssets(assets); err != nil {
			return nil, err
		}
		return json.Marshal(assets)

	case StepBeneficiaries:
		var bens []will.Beneficiary
		if err := json.Unmarshal(payload, &bens); err != nil {
			return nil, err
		}
		for i := range bens {
			if bens[i].ID == "" {
				bens[i].ID = uuid.NewString()
			}
		}
		if err := will.ValidateBeneficiaries(bens); err != nil {
			return nil, err
		}
		return json.Marshal(bens)

	case StepAssetAllocation:
		var allocs []will.Allocation
		if err := json.Unmarshal(payload, &allocs); err != nil {
			return nil, err
		}
		for i := range allocs {
			if allocs[i].ID == "" {
				allocs[i].ID = uuid.NewString()
			}
		}
		d, err := n.drafts.LoadDraft(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errDraftLoad, err)
		}
		if err := will.ValidateAllocations(allocs, d); err != nil {
			return nil, err
		}
		return json.Marshal(allocs)

	case StepExecutor:
		var e will.Executor
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		if err := will.ValidateExecutor(e); err != nil {
			return nil, err
		}
		return json.Marshal(e)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
}

func (n *Navigator) review(ctx context.Context, userID string) (Outcome, error) {
	d, err := n.drafts.LoadDraft(ctx, userID)
	if err != nil {
		n.log.Warn("review load failed", zap.String("user_id", userID), zap.Error(err))
		return Outcome{Step: StepReview, SaveError: msgNotLoaded}, nil
	}
	if err := will.ValidateDraft(d, n.now()); err != nil {
		var ve *will.ValidationError
		if errors.As(err, &ve) {
			return Outcome{Step: StepReview, Errors: ve.Fields}, nil
		}
		return Outcome{}, err
	}
	return Outcome{Step: StepReview, Route: RouteFinalize, Advanced: true}, nil
}

// bestEffort stores payload for the step without validating it. The family
// step still drops a stale spouse name.
func (n *Navigator) bestEffort(ctx context.Context, userID string, step Step, payload json.RawMessage, out *Outcome) {
	sec, ok := step.Section()
	if !ok || len(payload) == 0 {
		return
	}
	if !json.Valid(payload) {
		out.SaveError = msgNotSaved
		return
	}
	n.persist(ctx, userID, sec, payload, out)
}

func (n *Navigator) persist(ctx context.Context, userID string, sec will.Section, payload json.RawMessage, out *Outcome) {
	if err := n.drafts.PutSection(ctx, userID, sec, payload); err != nil {
		n.log.Warn("step save failed",
			zap.String("user_id", userID), zap.String("section", string(sec)), zap.Error(err))
		out.SaveError = msgNotSaved
		return
	}
	out.Saved = true
}
