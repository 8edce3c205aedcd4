package repository

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/jobboard/go-auth"
)

// AccountModel is the login view of the platform users table. Only the columns
// login needs are mapped.
type AccountModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	Email        string     `bun:"email,notnull,unique"`
	DisplayName  string     `bun:"display_name"`
	Role         string     `bun:"role,notnull"`
	PasswordHash string     `bun:"password_hash,notnull"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	DeletedAt    *time.Time `bun:"deleted_at,soft_delete,nullzero"`
}

// Accounts reads accounts for the login flow
type Accounts struct {
	repo repository.Repository[*AccountModel]
	db   bun.IDB
}

var _ auth.AccountStore = (*Accounts)(nil)

func NewAccounts(db *bun.DB) *Accounts {
	handlers := repository.ModelHandlers[*AccountModel]{
		NewRecord: func() *AccountModel {
			return &AccountModel{}
		},
		GetID: func(record *AccountModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *AccountModel, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	}
	return &Accounts{
		repo: repository.NewRepository(db, handlers),
		db:   db,
	}
}

// GetByIdentifier looks the account up by email or id
func (a *Accounts) GetByIdentifier(ctx context.Context, identifier string) (*auth.Account, error) {
	identifier = strings.TrimSpace(identifier)

	column := "id"
	value := identifier
	if _, err := mail.ParseAddress(identifier); err == nil {
		column = "email"
		value = strings.ToLower(identifier)
	} else if _, err := uuid.Parse(identifier); err != nil {
		return nil, auth.IdentityNotFound(identifier)
	}

	record := &AccountModel{}
	err := a.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, auth.IdentityNotFound(identifier)
		}
		return nil, err
	}

	return toAccount(record), nil
}

// Create inserts an account. Used to seed development databases.
func (a *Accounts) Create(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	if account == nil {
		return nil, fmt.Errorf("create account: nil account")
	}
	if _, err := auth.ParseRole(string(account.Role)); err != nil {
		return nil, err
	}

	record := &AccountModel{
		Email:        strings.ToLower(strings.TrimSpace(account.Email)),
		DisplayName:  strings.TrimSpace(account.DisplayName),
		Role:         string(account.Role),
		PasswordHash: account.PasswordHash,
	}
	if account.ID != "" {
		id, err := uuid.Parse(account.ID)
		if err != nil {
			return nil, fmt.Errorf("create account: invalid id %q: %w", account.ID, err)
		}
		record.ID = id
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := a.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	return toAccount(created), nil
}

// CreateAccountsTable creates the users table for development databases.
// Production deployments share the platform's users table.
func CreateAccountsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*AccountModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func toAccount(m *AccountModel) *auth.Account {
	return &auth.Account{
		ID:           m.ID.String(),
		Email:        m.Email,
		DisplayName:  m.DisplayName,
		Role:         auth.Role(m.Role),
		PasswordHash: m.PasswordHash,
	}
}
