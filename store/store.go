// Package store persists working drafts per user: singleton sections as one
// row each and list sections as one row per item.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"willdraft-go/models"
	"willdraft-go/will"
)

var (
	// ErrDraftUnavailable wraps every failure of the backing database.
	ErrDraftUnavailable = errors.New("draft storage unavailable")
	ErrUnknownSection   = errors.New("unknown draft section")
	ErrNotListSection   = errors.New("section is not a list")
	ErrItemNotFound     = errors.New("draft item not found")
	ErrDuplicateItem    = errors.New("draft item already exists")
	ErrInvalidPayload   = errors.New("invalid section payload")
)

// metaSection stores the draft's version and createdAt next to the sections.
const metaSection = "_meta"

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

func (s *Store) unavailable(op string, err error) error {
	s.log.Warn("draft storage failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %w", op, ErrDraftUnavailable, err)
}

func checkSection(sec will.Section) error {
	if _, err := will.ParseSection(string(sec)); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownSection, sec)
	}
	return nil
}

func checkList(sec will.Section) error {
	if err := checkSection(sec); err != nil {
		return err
	}
	if !sec.IsList() {
		return fmt.Errorf("%w: %q", ErrNotListSection, sec)
	}
	return nil
}

// GetSection returns the stored section merged over its default, or the
// default alone when nothing is stored. List sections come back as arrays.
func (s *Store) GetSection(ctx context.Context, userID string, sec will.Section) (json.RawMessage, error) {
	if err := checkSection(sec); err != nil {
		return nil, err
	}
	if sec.IsList() {
		items, err := s.ListItems(ctx, userID, sec)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	}

	def, err := will.SectionDefault(sec)
	if err != nil {
		return nil, err
	}
	stored, found, err := s.loadObject(s.db.WithContext(ctx), userID, string(sec))
	if err != nil {
		return nil, s.unavailable("get section", err)
	}
	if !found {
		return def, nil
	}

	var base map[string]any
	if err := json.Unmarshal(def, &base); err != nil {
		return nil, err
	}
	return json.Marshal(will.DeepMerge(base, stored))
}

// PutSection upserts a section. Singleton payloads are merged at the top
// level with what is stored; list payloads replace the whole list.
func (s *Store) PutSection(ctx context.Context, userID string, sec will.Section, payload json.RawMessage) error {
	if err := checkSection(sec); err != nil {
		return err
	}
	if sec.IsList() {
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			return fmt.Errorf("%w: %s must be an array", ErrInvalidPayload, sec)
		}
		return s.ReplaceItems(ctx, userID, sec, items)
	}

	incoming, err := decodeObject(payload)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, _, err := s.loadObject(tx, userID, string(sec))
		if err != nil {
			return err
		}
		merged := will.MergeTopLevel(stored, incoming)
		if sec == will.SectionFamilyDetails {
			will.ClearStaleSpouseFields(merged)
		}
		return upsertObject(tx, userID, string(sec), merged)
	})
	if err != nil {
		return s.unavailable("put section", err)
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context, userID string, sec will.Section) ([]json.RawMessage, error) {
	if err := checkList(sec); err != nil {
		return nil, err
	}
	var rows []models.DraftItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND section = ?", userID, string(sec)).
		Order("position ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, s.unavailable("list items", err)
	}

	items := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		items = append(items, json.RawMessage(r.Payload))
	}
	return items, nil
}

// AddItem appends an item, generating an id when the payload has none, and
// returns the stored payload.
func (s *Store) AddItem(ctx context.Context, userID string, sec will.Section, item json.RawMessage) (json.RawMessage, error) {
	if err := checkList(sec); err != nil {
		return nil, err
	}
	obj, err := decodeObject(item)
	if err != nil {
		return nil, err
	}
	id := ensureID(obj)
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.DraftItem{}).
			Where("user_id = ? AND section = ? AND item_id = ?", userID, string(sec), id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateItem
		}

		var maxPos sql.NullInt64
		if err := tx.Model(&models.DraftItem{}).
			Where("user_id = ? AND section = ?", userID, string(sec)).
			Select("MAX(position)").
			Row().Scan(&maxPos); err != nil {
			return err
		}
		pos := 0
		if maxPos.Valid {
			pos = int(maxPos.Int64) + 1
		}

		return tx.Create(&models.DraftItem{
			UserID:   userID,
			Section:  string(sec),
			ItemID:   id,
			Position: pos,
			Payload:  datatypes.JSON(raw),
		}).Error
	})
	if errors.Is(err, ErrDuplicateItem) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, id)
	}
	if err != nil {
		return nil, s.unavailable("add item", err)
	}
	return raw, nil
}

// UpdateItem replaces the payload of an existing item. The id in the path
// always wins over any id in the payload.
func (s *Store) UpdateItem(ctx context.Context, userID string, sec will.Section, itemID string, item json.RawMessage) (json.RawMessage, error) {
	if err := checkList(sec); err != nil {
		return nil, err
	}
	obj, err := decodeObject(item)
	if err != nil {
		return nil, err
	}
	obj["id"] = itemID
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.DraftItem{}).
		Where("user_id = ? AND section = ? AND item_id = ?", userID, string(sec), itemID).
		Updates(map[string]any{"payload": datatypes.JSON(raw), "updated_at": time.Now()})
	if res.Error != nil {
		return nil, s.unavailable("update item", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return raw, nil
}

func (s *Store) RemoveItem(ctx context.Context, userID string, sec will.Section, itemID string) error {
	if err := checkList(sec); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND section = ? AND item_id = ?", userID, string(sec), itemID).
		Delete(&models.DraftItem{})
	if res.Error != nil {
		return s.unavailable("remove item", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return nil
}

// ReplaceItems swaps the whole list for items in one transaction, so a
// failed insert leaves the previous list in place.
func (s *Store) ReplaceItems(ctx context.Context, userID string, sec will.Section, items []json.RawMessage) error {
	if err := checkList(sec); err != nil {
		return err
	}
	rows, err := itemRows(userID, sec, items)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceItems(tx, userID, sec, rows)
	})
	if err != nil {
		return s.unavailable("replace items", err)
	}
	return nil
}

// LoadDraft assembles every stored section and merges the result over the
// default draft.
func (s *Store) LoadDraft(ctx context.Context, userID string) (will.Draft, error) {
	db := s.db.WithContext(ctx)

	var sections []models.DraftSection
	if err := db.Where("user_id = ?", userID).Find(&sections).Error; err != nil {
		return will.Default(), s.unavailable("load draft", err)
	}
	var items []models.DraftItem
	if err := db.Where("user_id = ?", userID).Order("position ASC, id ASC").Find(&items).Error; err != nil {
		return will.Default(), s.unavailable("load draft", err)
	}

	loaded := make(map[string]any)
	for _, row := range sections {
		var v map[string]any
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			s.log.Warn("skipping corrupt draft section",
				zap.String("user_id", userID), zap.String("section", row.Section), zap.Error(err))
			continue
		}
		if row.Section == metaSection {
			for k, mv := range v {
				loaded[k] = mv
			}
			continue
		}
		loaded[row.Section] = v
	}
	for _, row := range items {
		var v any
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			s.log.Warn("skipping corrupt draft item",
				zap.String("user_id", userID), zap.String("item_id", row.ItemID), zap.Error(err))
			continue
		}
		list, _ := loaded[row.Section].([]any)
		loaded[row.Section] = append(list, v)
	}

	d, dropped, err := will.MergeOntoDefault(loaded)
	if err != nil {
		return will.Default(), err
	}
	if len(dropped) > 0 {
		s.log.Warn("ignoring draft values that do not decode",
			zap.String("user_id", userID), zap.Strings("paths", dropped))
	}
	return d, nil
}

// SaveDraft overwrites every section of the user's draft at once.
func (s *Store) SaveDraft(ctx context.Context, userID string, d will.Draft) error {
	d.Normalize()
	d.FamilyDetails.ClearStaleSpouse()
	m, err := will.ToMap(d)
	if err != nil {
		return err
	}

	listRows := make(map[will.Section][]models.DraftItem)
	for _, sec := range will.Sections {
		if !sec.IsList() {
			continue
		}
		raw, err := json.Marshal(m[string(sec)])
		if err != nil {
			return err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		rows, err := itemRows(userID, sec, items)
		if err != nil {
			return err
		}
		listRows[sec] = rows
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sec := range will.Sections {
			if sec.IsList() {
				if err := replaceItems(tx, userID, sec, listRows[sec]); err != nil {
					return err
				}
				continue
			}
			obj, _ := m[string(sec)].(map[string]any)
			if err := upsertObject(tx, userID, string(sec), obj); err != nil {
				return err
			}
		}
		if d.Version != nil || d.CreatedAt != nil {
			meta := map[string]any{}
			if d.Version != nil {
				meta["version"] = *d.Version
			}
			if d.CreatedAt != nil {
				meta["createdAt"] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
			}
			return upsertObject(tx, userID, metaSection, meta)
		}
		return nil
	})
	if err != nil {
		return s.unavailable("save draft", err)
	}
	return nil
}

// SaveMeta records the latest finalized version on the working draft.
// createdAt is only written the first time.
func (s *Store) SaveMeta(ctx context.Context, userID string, version int, createdAt time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta, _, err := s.loadObject(tx, userID, metaSection)
		if err != nil {
			return err
		}
		meta["version"] = version
		if _, ok := meta["createdAt"]; !ok {
			meta["createdAt"] = createdAt.UTC().Format(time.RFC3339Nano)
		}
		return upsertObject(tx, userID, metaSection, meta)
	})
	if err != nil {
		return s.unavailable("save meta", err)
	}
	return nil
}

func (s *Store) DeleteDraft(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.DraftItem{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.DraftSection{}).Error
	})
	if err != nil {
		return s.unavailable("delete draft", err)
	}
	return nil
}

func (s *Store) loadObject(db *gorm.DB, userID, section string) (map[string]any, bool, error) {
	var row models.DraftSection
	err := db.Where("user_id = ? AND section = ?", userID, section).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]any{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	obj := map[string]any{}
	if err := json.Unmarshal(row.Payload, &obj); err != nil {
		s.log.Warn("ignoring corrupt draft section",
			zap.String("user_id", userID), zap.String("section", section), zap.Error(err))
		return map[string]any{}, false, nil
	}
	return obj, true, nil
}

func upsertObject(tx *gorm.DB, userID, section string, obj map[string]any) error {
	if obj == nil {
		obj = map[string]any{}
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	row := models.DraftSection{UserID: userID, Section: section, Payload: datatypes.JSON(raw)}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "section"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

func replaceItems(tx *gorm.DB, userID string, sec will.Section, rows []models.DraftItem) error {
	if err := tx.Where("user_id = ? AND section = ?", userID, string(sec)).
		Delete(&models.DraftItem{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func itemRows(userID string, sec will.Section, items []json.RawMessage) ([]models.DraftItem, error) {
	rows := make([]models.DraftItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		obj, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", sec, i, err)
		}
		id := ensureID(obj)
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, id)
		}
		seen[id] = true

		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		rows = append(rows, models.DraftItem{
			UserID:   userID,
			Section:  string(sec),
			ItemID:   id,
			Position: i,
			Payload:  datatypes.JSON(raw),
		})
	}
	return rows, nil
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidPayload)
	}
	return obj, nil
}

func ensureID(obj map[string]any) string {
	if id, ok := obj["id"].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	obj["id"] = id
	return id
}
