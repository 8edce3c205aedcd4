package activitymap

import (
	"encoding/json"
	"strings"
	"time"

	auth "github.com/jobboard/go-auth"
)

const (
	// MetadataKeyActorEmail stores the actor email captured at write time.
	MetadataKeyActorEmail = "actor_email"
	// MetadataKeyActorName stores the actor display name captured at write time.
	MetadataKeyActorName = "actor_name"
	// MetadataKeyReason stores the entry reason.
	MetadataKeyReason = "reason"
	// MetadataKeyFields stores the names of the changed fields.
	MetadataKeyFields = "fields"
	// MetadataKeyBefore and MetadataKeyAfter store the decoded snapshots.
	MetadataKeyBefore = "before"
	MetadataKeyAfter  = "after"
	// MetadataKeyIP and MetadataKeyUserAgent store request details.
	MetadataKeyIP        = "ip"
	MetadataKeyUserAgent = "user_agent"
	// MetadataKeyEntryID stores the ledger entry id.
	MetadataKeyEntryID = "entry_id"
)

const (
	defaultChannel = "audit"
	defaultActorID = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	actorFallback    string
	includeSnapshots bool
}

// Normalize converts an audit entry into a generic normalized shape.
func Normalize(entry auth.AuditEntry, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(entry.ActorID),
		strings.TrimSpace(options.actorFallback),
	)

	occurredAt := entry.CreatedAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(entry.Action),
		ObjectType: string(entry.EntityType),
		ObjectID:   strings.TrimSpace(entry.EntityID),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(entry, options.includeSnapshots),
		OccurredAt: occurredAt,
	}
}

// NormalizeAll maps a slice of entries, keeping order.
func NormalizeAll(entries []*auth.AuditEntry, opts ...Option) []Normalized {
	out := make([]Normalized, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		out = append(out, Normalize(*entry, opts...))
	}
	return out
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the actor id used when the entry has none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithSnapshots includes the decoded before/after snapshots in metadata.
func WithSnapshots(include bool) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.includeSnapshots = include
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
	}
}

func normalizeMetadata(entry auth.AuditEntry, includeSnapshots bool) map[string]any {
	metadata := map[string]any{}

	setIfNotEmpty(metadata, MetadataKeyEntryID, entry.ID)
	setIfNotEmpty(metadata, MetadataKeyActorEmail, entry.ActorEmail)
	setIfNotEmpty(metadata, MetadataKeyActorName, entry.ActorName)
	setIfNotEmpty(metadata, MetadataKeyReason, entry.Reason)

	if entry.Changes != nil {
		if len(entry.Changes.Fields) > 0 {
			metadata[MetadataKeyFields] = append([]string(nil), entry.Changes.Fields...)
		}
		if includeSnapshots {
			if v, ok := decodeSnapshot(entry.Changes.Before); ok {
				metadata[MetadataKeyBefore] = v
			}
			if v, ok := decodeSnapshot(entry.Changes.After); ok {
				metadata[MetadataKeyAfter] = v
			}
		}
	}

	if entry.Request != nil {
		setIfNotEmpty(metadata, MetadataKeyIP, entry.Request.IP)
		setIfNotEmpty(metadata, MetadataKeyUserAgent, entry.Request.UserAgent)
		for key, value := range entry.Request.Extra {
			if _, exists := metadata[key]; !exists {
				metadata[key] = value
			}
		}
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func decodeSnapshot(raw json.RawMessage) (any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw), true
	}
	return v, true
}

func setIfNotEmpty(m map[string]any, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		m[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
