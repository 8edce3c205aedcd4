package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/jobboard/go-auth"
)

// DefaultQueryLimit caps Query when the filter sets no limit
const DefaultQueryLimit = 100

// AuditEntryModel is the Bun model for audit entries. Snapshots are kept as the
// JSON text captured at record time.
type AuditEntryModel struct {
	bun.BaseModel `bun:"table:audit_entries"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	Action        string    `bun:"action,notnull"`
	EntityType    string    `bun:"entity_type,notnull"`
	EntityID      string    `bun:"entity_id"`
	ActorID       string    `bun:"actor_id,notnull"`
	ActorEmail    string    `bun:"actor_email,notnull"`
	ActorName     string    `bun:"actor_name,notnull"`
	Before        string    `bun:"before_snapshot,nullzero"`
	After         string    `bun:"after_snapshot,nullzero"`
	ChangedFields string    `bun:"changed_fields,nullzero"`
	Reason        string    `bun:"reason"`
	RequestMeta   string    `bun:"request_meta,nullzero"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// AuditFilter narrows Query. Zero values match everything.
type AuditFilter struct {
	ActorID    string
	EntityType auth.EntityType
	EntityID   string
	Action     auth.AuditAction
	Since      time.Time
	Until      time.Time
	Limit      int
}

// AuditEntries is the append-only audit ledger backed by Bun. It exposes no
// update or delete.
type AuditEntries struct {
	repo repository.Repository[*AuditEntryModel]
	db   bun.IDB
}

var _ auth.AuditStore = (*AuditEntries)(nil)

// NewAuditEntries creates the ledger store
func NewAuditEntries(db *bun.DB) *AuditEntries {
	handlers := repository.ModelHandlers[*AuditEntryModel]{
		NewRecord: func() *AuditEntryModel {
			return &AuditEntryModel{}
		},
		GetID: func(record *AuditEntryModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *AuditEntryModel, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
	}
	return &AuditEntries{
		repo: repository.NewRepository(db, handlers),
		db:   db,
	}
}

// Append inserts entry. Entry ids must be UUIDs.
func (r *AuditEntries) Append(ctx context.Context, entry *auth.AuditEntry) error {
	model, err := fromAuditEntry(entry)
	if err != nil {
		return err
	}

	if _, err := r.repo.Create(ctx, model); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to append audit entry").
			WithMetadata(map[string]any{"entry_id": entry.ID})
	}

	return nil
}

// GetByID returns the stored entry
func (r *AuditEntries) GetByID(ctx context.Context, id string) (*auth.AuditEntry, error) {
	model, err := r.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryNotFound, "audit entry not found").
				WithCode(errors.CodeNotFound).
				WithMetadata(map[string]any{"id": id})
		}
		return nil, err
	}
	return toAuditEntry(model)
}

// Query returns matching entries, newest first
func (r *AuditEntries) Query(ctx context.Context, filter AuditFilter) ([]*auth.AuditEntry, error) {
	var models []AuditEntryModel

	q := r.db.NewSelect().Model(&models)

	if filter.ActorID != "" {
		q = q.Where("?TableAlias.actor_id = ?", filter.ActorID)
	}
	if filter.EntityType != "" {
		q = q.Where("?TableAlias.entity_type = ?", string(filter.EntityType))
	}
	if filter.EntityID != "" {
		q = q.Where("?TableAlias.entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		q = q.Where("?TableAlias.action = ?", string(filter.Action))
	}
	if !filter.Since.IsZero() {
		q = q.Where("?TableAlias.created_at >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("?TableAlias.created_at < ?", filter.Until.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	err := q.
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*auth.AuditEntry, 0, len(models))
	for i := range models {
		entry, err := toAuditEntry(&models[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func fromAuditEntry(e *auth.AuditEntry) (*AuditEntryModel, error) {
	if e == nil {
		return nil, errors.New("nil audit entry", errors.CategoryBadInput)
	}

	id, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "audit entry id must be a uuid").
			WithMetadata(map[string]any{"entry_id": e.ID})
	}

	model := &AuditEntryModel{
		ID:         id,
		Action:     string(e.Action),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		ActorName:  e.ActorName,
		Reason:     e.Reason,
		CreatedAt:  e.CreatedAt.UTC(),
	}

	if e.Changes != nil {
		model.Before = string(e.Changes.Before)
		model.After = string(e.Changes.After)
		if len(e.Changes.Fields) > 0 {
			fields, err := json.Marshal(e.Changes.Fields)
			if err != nil {
				return nil, err
			}
			model.ChangedFields = string(fields)
		}
	}

	if e.Request != nil {
		meta, err := json.Marshal(e.Request)
		if err != nil {
			return nil, err
		}
		model.RequestMeta = string(meta)
	}

	return model, nil
}

func toAuditEntry(m *AuditEntryModel) (*auth.AuditEntry, error) {
	entry := &auth.AuditEntry{
		ID:         m.ID.String(),
		Action:     auth.AuditAction(m.Action),
		EntityType: auth.EntityType(m.EntityType),
		EntityID:   m.EntityID,
		ActorID:    m.ActorID,
		ActorEmail: m.ActorEmail,
		ActorName:  m.ActorName,
		Reason:     m.Reason,
		CreatedAt:  m.CreatedAt.UTC(),
	}

	if m.Before != "" || m.After != "" || m.ChangedFields != "" {
		changes := &auth.ChangeRecord{}
		if m.Before != "" {
			changes.Before = json.RawMessage(m.Before)
		}
		if m.After != "" {
			changes.After = json.RawMessage(m.After)
		}
		if m.ChangedFields != "" {
			if err := json.Unmarshal([]byte(m.ChangedFields), &changes.Fields); err != nil {
				return nil, errors.Wrap(err, errors.CategoryInternal, "corrupt changed_fields column").
					WithMetadata(map[string]any{"entry_id": entry.ID})
			}
		}
		entry.Changes = changes
	}

	if m.RequestMeta != "" {
		meta := &auth.RequestMeta{}
		if err := json.Unmarshal([]byte(m.RequestMeta), meta); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "corrupt request_meta column").
				WithMetadata(map[string]any{"entry_id": entry.ID})
		}
		entry.Request = meta
	}

	return entry, nil
}
