// Package lifecycle finalizes drafts into versioned wills, updates finalized
// wills under an ownership check, and fronts the working draft.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"willdraft-go/models"
	"willdraft-go/store"
	"willdraft-go/utils"
	"willdraft-go/will"
)

// User-facing failure messages. A missing will and a will owned by someone
// else share MsgUpdateFailed so callers cannot probe for existence.
const (
	MsgNotAuthenticated = "You must be signed in to finalize a will"
	MsgSaveFailed       = "We could not save your will. Please try again."
	MsgUpdateFailed     = "Will not found or you do not have permission to modify it"
)

var ErrWillNotFound = errors.New("will not found")

// DraftStore is the working-copy persistence the manager needs.
type DraftStore interface {
	LoadDraft(ctx context.Context, userID string) (will.Draft, error)
	SaveDraft(ctx context.Context, userID string, d will.Draft) error
	SaveMeta(ctx context.Context, userID string, version int, createdAt time.Time) error
	DeleteDraft(ctx context.Context, userID string) error
}

// Result is returned by Finalize and Update instead of an error.
type Result struct {
	OK      bool   `json:"ok"`
	WillID  string `json:"willId,omitempty"`
	Version int    `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
	// Warning is set when the will was saved but clearing or stamping the
	// working draft failed afterwards.
	Warning string `json:"warning,omitempty"`
}

func failure(msg string) Result { return Result{Message: msg} }

type FinalizeOptions struct {
	ClearDraft bool
}

// Will is a finalized will with its snapshot unsealed.
type Will struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Draft     will.Draft `json:"willData"`
}

type Manager struct {
	db     *gorm.DB
	drafts DraftStore
	log    *zap.Logger
	now    func() time.Time
}

func NewManager(db *gorm.DB, drafts DraftStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{db: db, drafts: drafts, log: log, now: time.Now}
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// Finalize stores an immutable snapshot of d as the user's next version.
func (m *Manager) Finalize(ctx context.Context, userID string, d will.Draft, opts FinalizeOptions) Result {
	if userID == "" {
		return failure(MsgNotAuthenticated)
	}

	now := m.timestamp()
	rec := models.FinalizedWill{ID: uuid.NewString(), UserID: userID, CreatedAt: now}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior int64
		if err := tx.Model(&models.FinalizedWill{}).Where("user_id = ?", userID).Count(&prior).Error; err != nil {
			return fmt.Errorf("count prior wills: %w", err)
		}
		rec.Version = int(prior) + 1

		sealed, err := seal(d, rec.Version, now)
		if err != nil {
			return err
		}
		rec.WillData = sealed
		return tx.Create(&rec).Error
	})
	if err != nil {
		m.log.Error("finalize will failed", zap.String("user_id", userID), zap.Error(err))
		return failure(MsgSaveFailed)
	}

	m.log.Info("will finalized",
		zap.String("user_id", userID), zap.String("will_id", rec.ID), zap.Int("version", rec.Version))

	res := Result{OK: true, WillID: rec.ID, Version: rec.Version}
	if opts.ClearDraft {
		if err := m.drafts.DeleteDraft(ctx, userID); err != nil {
			m.log.Warn("clear draft after finalize failed", zap.String("user_id", userID), zap.Error(err))
			res.Warning = "Your will was saved but the working draft could not be cleared"
		}
		return res
	}
	if err := m.drafts.SaveMeta(ctx, userID, rec.Version, now); err != nil {
		m.log.Warn("stamp draft version failed", zap.String("user_id", userID), zap.Error(err))
		res.Warning = "Your will was saved but the draft could not be updated"
	}
	return res
}

// Update replaces the snapshot of a finalized will owned by userID. Version
// and createdAt stay as they were.
func (m *Manager) Update(ctx context.Context, userID, willID string, d will.Draft) Result {
	if userID == "" {
		return failure(MsgUpdateFailed)
	}

	var rec models.FinalizedWill
	err := m.db.WithContext(ctx).Where("id = ?", willID).Take(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		m.log.Info("update of missing will", zap.String("user_id", userID), zap.String("will_id", willID))
		return failure(MsgUpdateFailed)
	case err != nil:
		m.log.Error("load will for update failed", zap.String("will_id", willID), zap.Error(err))
		return failure(MsgSaveFailed)
	case rec.UserID != userID:
		m.log.Warn("update of will owned by another user",
			zap.String("user_id", userID), zap.String("will_id", willID))
		return failure(MsgUpdateFailed)
	}

	sealed, err := seal(d, rec.Version, rec.CreatedAt)
	if err != nil {
		m.log.Error("seal will failed", zap.String("will_id", willID), zap.Error(err))
		return failure(MsgSaveFailed)
	}

	res := m.db.WithContext(ctx).Model(&models.FinalizedWill{}).
		Where("id = ? AND user_id = ?", willID, userID).
		Updates(map[string]any{"will_data": sealed, "updated_at": m.timestamp()})
	if res.Error != nil {
		m.log.Error("update will failed", zap.String("will_id", willID), zap.Error(res.Error))
		return failure(MsgSaveFailed)
	}
	if res.RowsAffected == 0 {
		return failure(MsgUpdateFailed)
	}
	return Result{OK: true, WillID: rec.ID, Version: rec.Version}
}

// Get returns a finalized will owned by userID, or ErrWillNotFound.
func (m *Manager) Get(ctx context.Context, userID, willID string) (*Will, error) {
	var rec models.FinalizedWill
	err := m.db.WithContext(ctx).Where("id = ? AND user_id = ?", willID, userID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load will: %w", err)
	}

	d, err := unseal(rec.WillData)
	if err != nil {
		return nil, fmt.Errorf("unseal will %s: %w", rec.ID, err)
	}
	return &Will{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Draft:     d,
	}, nil
}

// List returns the user's finalized wills, newest version first, without
// their payloads.
func (m *Manager) List(ctx context.Context, userID string) ([]models.FinalizedWill, error) {
	var recs []models.FinalizedWill
	err := m.db.WithContext(ctx).
		Select("id", "user_id", "version", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("version DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list wills: %w", err)
	}
	return recs, nil
}

// GetDraft loads the working draft. When storage is down it returns the
// default draft and true, so the wizard stays usable.
func (m *Manager) GetDraft(ctx context.Context, userID string) (will.Draft, bool) {
	d, err := m.drafts.LoadDraft(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrDraftUnavailable) {
			m.log.Error("load draft failed", zap.String("user_id", userID), zap.Error(err))
		}
		return will.Default(), true
	}
	return d, false
}

func (m *Manager) UpdateDraft(ctx context.Context, userID string, d will.Draft) error {
	return m.drafts.SaveDraft(ctx, userID, d)
}

func (m *Manager) DeleteDraft(ctx context.Context, userID string) error {
	return m.drafts.DeleteDraft(ctx, userID)
}

func seal(d will.Draft, version int, createdAt time.Time) (string, error) {
	d.Normalize()
	d.Version = &version
	d.CreatedAt = &createdAt

	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode will: %w", err)
	}
	sealed, err := utils.EncryptSensitiveData(string(raw))
	if err != nil {
		return "", fmt.Errorf("seal will: %w", err)
	}
	return sealed, nil
}

func unseal(sealed string) (will.Draft, error) {
	plain, err := utils.DecryptSensitiveData(sealed)
	if err != nil {
		return will.Draft{}, err
	}
	var loaded map[string]any
	if err := json.Unmarshal([]byte(plain), &loaded); err != nil {
		return will.Draft{}, err
	}
	d, _, err := will.MergeOntoDefault(loaded)
	return d, err
}
