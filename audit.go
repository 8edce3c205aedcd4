package auth

import (
	"context"
	"encoding/json"
	"maps"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AuditAction enumerates the audited actions
type AuditAction string

const (
	ActionCreate   AuditAction = "create"
	ActionUpdate   AuditAction = "update"
	ActionDelete   AuditAction = "delete"
	ActionLogin    AuditAction = "login"
	ActionLogout   AuditAction = "logout"
	ActionRegister AuditAction = "register"
)

// IsValid checks if the action is part of the closed set
func (a AuditAction) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout, ActionRegister:
		return true
	default:
		return false
	}
}

// ParseAuditAction parses a string into an AuditAction
func ParseAuditAction(s string) (AuditAction, error) {
	a := AuditAction(s)
	if !a.IsValid() {
		return "", kindOf(ErrInvalidAuditInput, map[string]any{"action": s})
	}
	return a, nil
}

// EntityType enumerates the entities whose changes are audited
type EntityType string

const (
	EntityUser    EntityType = "user"
	EntityCompany EntityType = "company"
	EntityJob     EntityType = "job"
	EntityCV      EntityType = "cv"
)

// IsValid checks if the entity type is part of the closed set
func (e EntityType) IsValid() bool {
	switch e {
	case EntityUser, EntityCompany, EntityJob, EntityCV:
		return true
	default:
		return false
	}
}

// ParseEntityType parses a string into an EntityType
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(s)
	if !e.IsValid() {
		return "", kindOf(ErrInvalidAuditInput, map[string]any{"entity_type": s})
	}
	return e, nil
}

// Actor is the identity that performed an audited action, captured at write time
type Actor struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// ActorFromPrincipal builds an Actor from the guard-produced principal
func ActorFromPrincipal(p Principal, displayName string) Actor {
	return Actor{ID: p.ID, Email: p.Email, DisplayName: displayName}
}

// Validate implements validation.Validatable
func (a Actor) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ID, validation.Required),
		validation.Field(&a.Email, validation.Required, is.EmailFormat),
	)
}

// ChangeSet is what callers hand to the recorder: the pre and post mutation
// snapshots plus the names of the fields they changed. The recorder does not
// compute diffs.
type ChangeSet struct {
	Before any
	After  any
	Fields []string
}

// ChangeRecord is the stored form of a ChangeSet. Snapshots keep the JSON
// encoding taken at record time.
type ChangeRecord struct {
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
	Fields []string        `json:"fields,omitempty"`
}

// RequestMeta describes the request that triggered an audited action
type RequestMeta struct {
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// AuditEntry is one immutable ledger record
type AuditEntry struct {
	ID         string        `json:"id"`
	Action     AuditAction   `json:"action"`
	EntityType EntityType    `json:"entity_type"`
	EntityID   string        `json:"entity_id,omitempty"`
	ActorID    string        `json:"actor_id"`
	ActorEmail string        `json:"actor_email"`
	ActorName  string        `json:"actor_name"`
	Changes    *ChangeRecord `json:"changes,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Request    *RequestMeta  `json:"request,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Clone returns a deep copy so no two holders share mutable state
func (e *AuditEntry) Clone() *AuditEntry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Changes != nil {
		out.Changes = &ChangeRecord{
			Before: cloneBytes(e.Changes.Before),
			After:  cloneBytes(e.Changes.After),
			Fields: append([]string(nil), e.Changes.Fields...),
		}
	}
	if e.Request != nil {
		req := *e.Request
		if e.Request.Extra != nil {
			req.Extra = maps.Clone(e.Request.Extra)
		}
		out.Request = &req
	}
	return &out
}

func cloneBytes(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

// AuditStore is the append-only ledger. Implementations must never update or
// delete an entry once appended.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
}

// AuditStoreFunc adapts a function to the AuditStore interface.
type AuditStoreFunc func(ctx context.Context, entry *AuditEntry) error

// Append implements AuditStore.
func (f AuditStoreFunc) Append(ctx context.Context, entry *AuditEntry) error {
	if f == nil {
		id := ""
		if entry != nil {
			id = entry.ID
		}
		return auditWriteFailed(id, errors.New("nil audit store func", errors.CategoryInternal))
	}
	return f(ctx, entry)
}

// RecordOption sets the optional parts of an audit entry
type RecordOption func(*recordInput)

type recordInput struct {
	Action     AuditAction  `json:"action"`
	EntityType EntityType   `json:"entity_type"`
	EntityID   string       `json:"entity_id"`
	Actor      Actor        `json:"actor"`
	Changes    *ChangeSet   `json:"changes"`
	Reason     string       `json:"reason"`
	Request    *RequestMeta `json:"request"`
}

// WithEntityID sets the affected entity id
func WithEntityID(id string) RecordOption {
	return func(in *recordInput) {
		in.EntityID = strings.TrimSpace(id)
	}
}

// WithChanges attaches before/after snapshots
func WithChanges(changes ChangeSet) RecordOption {
	return func(in *recordInput) {
		in.Changes = &changes
	}
}

// WithReason attaches a human readable reason
func WithReason(reason string) RecordOption {
	return func(in *recordInput) {
		in.Reason = strings.TrimSpace(reason)
	}
}

// WithRequestMeta attaches caller IP, user agent and extras
func WithRequestMeta(meta RequestMeta) RecordOption {
	return func(in *recordInput) {
		in.Request = &meta
	}
}

func (in recordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Action, validation.Required, validation.By(func(value any) error {
			if a, _ := value.(AuditAction); !a.IsValid() {
				return validation.NewError("validation_audit_action", "must be a known action")
			}
			return nil
		})),
		validation.Field(&in.EntityType, validation.Required, validation.By(func(value any) error {
			if e, _ := value.(EntityType); !e.IsValid() {
				return validation.NewError("validation_entity_type", "must be a known entity type")
			}
			return nil
		})),
		validation.Field(&in.Actor),
		validation.Field(&in.Reason, validation.Length(0, 2000)),
	)
}

// AuditOption customizes an AuditRecorder
type AuditOption func(*AuditRecorder)

// WithAuditLogger sets the logger
func WithAuditLogger(logger Logger) AuditOption {
	return func(r *AuditRecorder) {
		r.logger = normalizeLogger(logger)
	}
}

// WithAuditClock replaces time.Now
func WithAuditClock(now func() time.Time) AuditOption {
	return func(r *AuditRecorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithAuditIDGenerator replaces the uuid id generator
func WithAuditIDGenerator(newID func() string) AuditOption {
	return func(r *AuditRecorder) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// WithWriteTimeout bounds each store write. Zero disables the bound.
func WithWriteTimeout(d time.Duration) AuditOption {
	return func(r *AuditRecorder) {
		if d >= 0 {
			r.writeTimeout = d
		}
	}
}

// DefaultAuditWriteTimeout bounds a single store write
const DefaultAuditWriteTimeout = 5 * time.Second

// AuditRecorder builds and persists audit entries
type AuditRecorder struct {
	store        AuditStore
	logger       Logger
	now          func() time.Time
	newID        func() string
	writeTimeout time.Duration
}

// NewAuditRecorder returns a recorder writing to store
func NewAuditRecorder(store AuditStore, opts ...AuditOption) *AuditRecorder {
	r := &AuditRecorder{
		store:        store,
		logger:       DefaultLogger(),
		now:          time.Now,
		newID:        uuid.NewString,
		writeTimeout: DefaultAuditWriteTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Record validates, builds and persists one audit entry. Invalid input yields
// ErrInvalidAuditInput; a store failure yields ErrAuditWriteFailed. Neither
// should abort the operation being audited.
//
// The write is detached from ctx cancellation: once issued it runs to
// completion (or to the write timeout) even if the request goes away.
func (r *AuditRecorder) Record(ctx context.Context, action AuditAction, entityType EntityType, actor Actor, opts ...RecordOption) (*AuditEntry, error) {
	in := recordInput{
		Action:     action,
		EntityType: entityType,
		Actor:      actor,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&in)
		}
	}

	entry, err := r.build(in)
	if err != nil {
		return nil, err
	}

	if r.store == nil {
		return nil, auditWriteFailed(entry.ID, errors.New("no audit store configured", errors.CategoryInternal))
	}

	if ctx == nil {
		ctx = context.Background()
	}
	writeCtx := context.WithoutCancel(ctx)
	if r.writeTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(writeCtx, r.writeTimeout)
		defer cancel()
	}

	if err := r.store.Append(writeCtx, entry.Clone()); err != nil {
		r.logger.Warn("AuditRecorder: append %s %s/%s failed: %v", entry.Action, entry.EntityType, entry.EntityID, err)
		if IsAuditWriteFailed(err) {
			return nil, err
		}
		return nil, auditWriteFailed(entry.ID, err)
	}

	return entry, nil
}

// Emit records an entry and logs any failure instead of returning it. This is
// the call-site policy for audit writes that must not affect the primary
// operation.
func (r *AuditRecorder) Emit(ctx context.Context, action AuditAction, entityType EntityType, actor Actor, opts ...RecordOption) {
	if r == nil {
		return
	}
	if _, err := r.Record(ctx, action, entityType, actor, opts...); err != nil {
		r.logger.Error("AuditRecorder: %s %s by %s not recorded: %v", action, entityType, actor.ID, err)
	}
}

func (r *AuditRecorder) build(in recordInput) (*AuditEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, invalidAuditInput(err)
	}

	entry := &AuditEntry{
		ID:         r.newID(),
		Action:     in.Action,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		ActorID:    strings.TrimSpace(in.Actor.ID),
		ActorEmail: strings.TrimSpace(in.Actor.Email),
		ActorName:  strings.TrimSpace(in.Actor.DisplayName),
		Reason:     in.Reason,
		CreatedAt:  r.now().UTC().Truncate(time.Microsecond),
	}

	if entry.ActorName == "" {
		entry.ActorName = entry.ActorEmail
	}

	if in.Changes != nil {
		changes, err := snapshotChanges(*in.Changes)
		if err != nil {
			return nil, invalidAuditInput(err)
		}
		entry.Changes = changes
	}

	if in.Request != nil {
		req := RequestMeta{
			IP:        strings.TrimSpace(in.Request.IP),
			UserAgent: in.Request.UserAgent,
		}
		if len(in.Request.Extra) > 0 {
			req.Extra = maps.Clone(in.Request.Extra)
		}
		entry.Request = &req
	}

	return entry, nil
}

func snapshotChanges(cs ChangeSet) (*ChangeRecord, error) {
	out := &ChangeRecord{}
	var err error

	if cs.Before != nil {
		if out.Before, err = json.Marshal(cs.Before); err != nil {
			return nil, validation.Errors{"before": err}
		}
	}

	if cs.After != nil {
		if out.After, err = json.Marshal(cs.After); err != nil {
			return nil, validation.Errors{"after": err}
		}
	}

	if len(cs.Fields) > 0 {
		out.Fields = append([]string(nil), cs.Fields...)
	}

	return out, nil
}

func invalidAuditInput(err error) error {
	clone := kindOf(ErrInvalidAuditInput)
	if verr := errors.FromOzzoValidation(err, clone.Message); verr != nil {
		clone.ValidationErrors = verr.ValidationErrors
	}
	return clone
}
