package repository

import (
	"context"

	"github.com/uptrace/bun"
)

// CreateSchema creates the audit_entries table and its lookup indexes if they
// do not exist yet.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*AuditEntryModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	indexes := []struct {
		name    string
		columns []string
	}{
		{"idx_audit_entries_actor_id", []string{"actor_id"}},
		{"idx_audit_entries_entity", []string{"entity_type", "entity_id"}},
		{"idx_audit_entries_action", []string{"action"}},
		{"idx_audit_entries_created_at", []string{"created_at"}},
	}

	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model((*AuditEntryModel)(nil)).
			Index(idx.name).
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
