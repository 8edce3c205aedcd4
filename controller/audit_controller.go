package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	auth "github.com/jobboard/go-auth"
	"github.com/jobboard/go-auth/activitymap"
	"github.com/jobboard/go-auth/repository"
)

// MaxAuditPageSize caps the limit query parameter
const MaxAuditPageSize = 500

// AuditQuerier is the read side of the audit ledger
type AuditQuerier interface {
	Query(ctx context.Context, filter repository.AuditFilter) ([]*auth.AuditEntry, error)
}

// AuditController exposes the ledger to administrators. It is read only.
type AuditController struct {
	Entries AuditQuerier
	Logger  auth.Logger
}

func NewAuditController(entries AuditQuerier, logger auth.Logger) *AuditController {
	if entries == nil {
		panic("Missing AuditQuerier in audit controller...")
	}
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return &AuditController{Entries: entries, Logger: logger}
}

// AuditQuery are the accepted query parameters
type AuditQuery struct {
	ActorID    string `json:"actor_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	Since      string `json:"since"`
	Until      string `json:"until"`
	Limit      string `json:"limit"`
	Snapshots  string `json:"snapshots"`
}

// NewAuditQuery reads the query parameters from the request
func NewAuditQuery(c router.Context) *AuditQuery {
	return &AuditQuery{
		ActorID:    c.Query("actor_id", ""),
		EntityType: c.Query("entity_type", ""),
		EntityID:   c.Query("entity_id", ""),
		Action:     c.Query("action", ""),
		Since:      c.Query("since", ""),
		Until:      c.Query("until", ""),
		Limit:      c.Query("limit", ""),
		Snapshots:  c.Query("snapshots", ""),
	}
}

// Validate will run validation rules
func (q AuditQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.EntityType, validation.By(func(value any) error {
			if s, _ := value.(string); s != "" && !auth.EntityType(s).IsValid() {
				return validation.NewError("validation_entity_type", "must be a known entity type")
			}
			return nil
		})),
		validation.Field(&q.Action, validation.By(func(value any) error {
			if s, _ := value.(string); s != "" && !auth.AuditAction(s).IsValid() {
				return validation.NewError("validation_audit_action", "must be a known action")
			}
			return nil
		})),
		validation.Field(&q.EntityID, validation.By(func(value any) error {
			if s, _ := value.(string); s != "" && q.EntityType == "" {
				return validation.NewError("validation_entity_id", "requires entity_type")
			}
			return nil
		})),
		validation.Field(&q.Since, validation.By(validTimestamp)),
		validation.Field(&q.Until, validation.By(validTimestamp)),
		validation.Field(&q.Snapshots, validation.By(func(value any) error {
			if s, _ := value.(string); s != "" {
				if _, err := strconv.ParseBool(s); err != nil {
					return validation.NewError("validation_bool", "must be true or false")
				}
			}
			return nil
		})),
		validation.Field(&q.Limit, validation.By(func(value any) error {
			s, _ := value.(string)
			if s == "" {
				return nil
			}
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > MaxAuditPageSize {
				return validation.NewError("validation_limit", "must be between 1 and "+strconv.Itoa(MaxAuditPageSize))
			}
			return nil
		})),
	)
}

func validTimestamp(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return validation.NewError("validation_timestamp", "must be an RFC3339 timestamp")
	}
	return nil
}

func (q AuditQuery) filter() repository.AuditFilter {
	f := repository.AuditFilter{
		ActorID:    strings.TrimSpace(q.ActorID),
		EntityType: auth.EntityType(q.EntityType),
		EntityID:   strings.TrimSpace(q.EntityID),
		Action:     auth.AuditAction(q.Action),
	}
	if q.Since != "" {
		f.Since, _ = time.Parse(time.RFC3339, q.Since)
	}
	if q.Until != "" {
		f.Until, _ = time.Parse(time.RFC3339, q.Until)
	}
	if q.Limit != "" {
		f.Limit, _ = strconv.Atoi(q.Limit)
	}
	return f
}

// AuditPage is the list response
type AuditPage struct {
	Data  []activitymap.Normalized `json:"data"`
	Count int                      `json:"count"`
}

func (q AuditQuery) withSnapshots() bool {
	ok, _ := strconv.ParseBool(q.Snapshots)
	return ok
}

func (a *AuditController) List(c router.Context) error {
	query := NewAuditQuery(c)

	if err := query.Validate(); err != nil {
		return errors.FromOzzoValidation(err, "invalid audit query")
	}

	entries, err := a.Entries.Query(c.Context(), query.filter())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to query audit entries")
	}

	data := activitymap.NormalizeAll(entries, activitymap.WithSnapshots(query.withSnapshots()))

	return c.JSON(http.StatusOK, AuditPage{Data: data, Count: len(data)})
}
