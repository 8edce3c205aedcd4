package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/jobboard/go-auth"
)

func setupAuditEntries(t *testing.T) *AuditEntries {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, CreateSchema(context.Background(), db))
	// running twice must be harmless
	require.NoError(t, CreateSchema(context.Background(), db))

	return NewAuditEntries(db)
}

type jobSnapshot struct {
	Title  string   `json:"title"`
	Salary int      `json:"salary"`
	Tags   []string `json:"tags"`
}

func TestAuditEntriesAppendAndGet(t *testing.T) {
	store := setupAuditEntries(t)
	ctx := context.Background()

	var appended *auth.AuditEntry
	recorder := auth.NewAuditRecorder(auth.AuditStoreFunc(func(ctx context.Context, e *auth.AuditEntry) error {
		appended = e
		return store.Append(ctx, e)
	}), auth.WithAuditLogger(auth.NopLogger{}))

	before := &jobSnapshot{Title: "Go dev", Salary: 100, Tags: []string{"go"}}
	after := &jobSnapshot{Title: "Senior Go dev", Salary: 120, Tags: []string{"go", "senior"}}

	entry, err := recorder.Record(ctx, auth.ActionUpdate, auth.EntityJob,
		auth.Actor{ID: "u1", Email: "rec@example.com", DisplayName: "Rita Recruiter"},
		auth.WithEntityID("j1"),
		auth.WithChanges(auth.ChangeSet{Before: before, After: after, Fields: []string{"title", "salary", "tags"}}),
		auth.WithRequestMeta(auth.RequestMeta{IP: "10.0.0.1", UserAgent: "test-agent"}),
	)
	require.NoError(t, err)
	require.NotNil(t, appended)

	// the live objects keep changing after the write
	after.Title = "changed later"
	after.Tags[0] = "rust"

	stored, err := store.GetByID(ctx, entry.ID)
	require.NoError(t, err)

	assert.Equal(t, entry.ID, stored.ID)
	assert.Equal(t, auth.ActionUpdate, stored.Action)
	assert.Equal(t, auth.EntityJob, stored.EntityType)
	assert.Equal(t, "j1", stored.EntityID)
	assert.Equal(t, "u1", stored.ActorID)
	assert.Equal(t, "rec@example.com", stored.ActorEmail)
	assert.Equal(t, "Rita Recruiter", stored.ActorName)
	assert.True(t, entry.CreatedAt.Equal(stored.CreatedAt))

	require.NotNil(t, stored.Changes)
	assert.Equal(t, string(entry.Changes.Before), string(stored.Changes.Before))
	assert.Equal(t, string(entry.Changes.After), string(stored.Changes.After))
	assert.Equal(t, []string{"title", "salary", "tags"}, stored.Changes.Fields)

	var got jobSnapshot
	require.NoError(t, json.Unmarshal(stored.Changes.After, &got))
	assert.Equal(t, "Senior Go dev", got.Title)
	assert.Equal(t, []string{"go", "senior"}, got.Tags)

	require.NotNil(t, stored.Request)
	assert.Equal(t, "10.0.0.1", stored.Request.IP)
	assert.Equal(t, "test-agent", stored.Request.UserAgent)
}

func TestAuditEntriesGetByIDNotFound(t *testing.T) {
	store := setupAuditEntries(t)

	_, err := store.GetByID(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
	assert.True(t, errors.IsNotFound(err))

	var rich *errors.Error
	require.True(t, errors.As(err, &rich))
	assert.Equal(t, errors.CodeNotFound, rich.Code)
	assert.Contains(t, rich.Metadata, "id")
}

func TestAuditEntriesAppendRejectsNonUUID(t *testing.T) {
	store := setupAuditEntries(t)

	err := store.Append(context.Background(), &auth.AuditEntry{
		ID:         "not-a-uuid",
		Action:     auth.ActionCreate,
		EntityType: auth.EntityCompany,
		ActorID:    "u1",
		ActorEmail: "a@example.com",
		ActorName:  "a@example.com",
		CreatedAt:  time.Now(),
	})
	require.Error(t, err)
}

func TestAuditEntriesDuplicateIDRejected(t *testing.T) {
	store := setupAuditEntries(t)
	ctx := context.Background()

	entry := &auth.AuditEntry{
		ID:         uuid.NewString(),
		Action:     auth.ActionCreate,
		EntityType: auth.EntityCompany,
		EntityID:   "c1",
		ActorID:    "u1",
		ActorEmail: "a@example.com",
		ActorName:  "a@example.com",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.Append(ctx, entry))

	overwrite := entry.Clone()
	overwrite.Reason = "rewritten"
	require.Error(t, store.Append(ctx, overwrite))

	stored, err := store.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Reason)
}

func TestAuditEntriesQuery(t *testing.T) {
	store := setupAuditEntries(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	recorder := auth.NewAuditRecorder(store,
		auth.WithAuditLogger(auth.NopLogger{}),
		auth.WithAuditClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}),
	)

	admin := auth.Actor{ID: "admin-1", Email: "admin@example.com"}
	recruiter := auth.Actor{ID: "rec-1", Email: "rec@example.com"}

	_, err := recorder.Record(ctx, auth.ActionCreate, auth.EntityJob, recruiter, auth.WithEntityID("j1"))
	require.NoError(t, err)
	_, err = recorder.Record(ctx, auth.ActionUpdate, auth.EntityJob, recruiter, auth.WithEntityID("j1"))
	require.NoError(t, err)
	_, err = recorder.Record(ctx, auth.ActionDelete, auth.EntityJob, admin, auth.WithEntityID("j1"), auth.WithReason("spam"))
	require.NoError(t, err)
	_, err = recorder.Record(ctx, auth.ActionLogin, auth.EntityUser, admin, auth.WithEntityID("admin-1"))
	require.NoError(t, err)

	all, err := store.Query(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, auth.ActionLogin, all[0].Action)
	assert.Equal(t, auth.ActionCreate, all[3].Action)

	byJob, err := store.Query(ctx, AuditFilter{EntityType: auth.EntityJob, EntityID: "j1"})
	require.NoError(t, err)
	require.Len(t, byJob, 3)
	assert.Equal(t, "spam", byJob[0].Reason)

	byActor, err := store.Query(ctx, AuditFilter{ActorID: "rec-1"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byAction, err := store.Query(ctx, AuditFilter{Action: auth.ActionDelete})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "admin-1", byAction[0].ActorID)

	since, err := store.Query(ctx, AuditFilter{Since: base.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	limited, err := store.Query(ctx, AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, auth.ActionLogin, limited[0].Action)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
}
