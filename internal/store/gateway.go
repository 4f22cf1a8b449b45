// Package store provides a generic CRUD/query gateway over the relational
// store. Services compose it for plain record access and drop down to raw
// gorm transactions for multi-table operations.
package store

import (
	"context"
	"fmt"

	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"gorm.io/gorm"
)

type contextKey int

const userKey contextKey = iota

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFrom extracts the authenticated user id from the context.
func UserFrom(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userKey).(uint)
	return id, ok && id != 0
}

// Op is a filter comparison operator.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpLike  Op = "like"
	OpILike Op = "ilike"
	OpIn    Op = "in"
	OpIs    Op = "is"
)

// Filter is one conjunct of a list query.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Sort orders results by one field.
type Sort struct {
	Field     string
	Ascending bool
}

// Pagination selects one page of results. Page and Limit default to 1/10.
type Pagination struct {
	Page  int
	Limit int
}

// ListOptions is the declarative query vocabulary accepted by List and
// ListPaginated. Filters combine as a conjunction.
type ListOptions struct {
	Filters    []Filter
	Sorts      []Sort
	Pagination *Pagination
}

// Page carries one page of results plus derived pagination metadata.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// BatchUpdateItem is one per-record update in a BatchUpdate call.
type BatchUpdateItem struct {
	ID     uint
	Values map[string]interface{}
}

// UserOwned is implemented by records that carry the creating user's id.
type UserOwned interface {
	OwnerID() uint
	SetOwnerID(uint)
}

// Gateway provides typed CRUD and query operations for one relation.
// Filter and sort fields are validated against the column allowlist given at
// construction; unknown fields fail with DATABASE_VALIDATION rather than
// reaching the database.
type Gateway[T any] struct {
	db      *gorm.DB
	table   string
	columns map[string]bool
}

// NewGateway creates a gateway for the named relation. columns lists the
// fields that may appear in filters and sorts.
func NewGateway[T any](db *gorm.DB, table string, columns ...string) *Gateway[T] {
	allowed := make(map[string]bool, len(columns))
	for _, col := range columns {
		allowed[col] = true
	}
	return &Gateway[T]{db: db, table: table, columns: allowed}
}

// Get fetches one record by primary key.
func (g *Gateway[T]) Get(ctx context.Context, id uint) (*T, error) {
	var record T
	if err := g.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, g.fail("get", err)
	}
	logger.Debugf("[Gateway] get %s id=%d", g.table, id)
	return &record, nil
}

// List fetches all records matching the options.
func (g *Gateway[T]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	query, err := g.buildQuery(ctx, opts)
	if err != nil {
		return nil, err
	}

	var records []T
	if err := query.Find(&records).Error; err != nil {
		return nil, g.fail("list", err)
	}
	logger.Debugf("[Gateway] list %s matched=%d", g.table, len(records))
	return records, nil
}

// ListPaginated fetches one page of records plus the total count.
func (g *Gateway[T]) ListPaginated(ctx context.Context, opts ListOptions) (*Page[T], error) {
	page, limit := 1, 10
	if opts.Pagination != nil {
		if opts.Pagination.Page > 0 {
			page = opts.Pagination.Page
		}
		if opts.Pagination.Limit > 0 {
			limit = opts.Pagination.Limit
		}
	}

	countQuery, err := g.buildQuery(ctx, ListOptions{Filters: opts.Filters})
	if err != nil {
		return nil, err
	}
	var model T
	var total int64
	if err := countQuery.Model(&model).Count(&total).Error; err != nil {
		return nil, g.fail("list_paginated", err)
	}

	query, err := g.buildQuery(ctx, opts)
	if err != nil {
		return nil, err
	}

	from := (page - 1) * limit
	var records []T
	if err := query.Offset(from).Limit(limit).Find(&records).Error; err != nil {
		return nil, g.fail("list_paginated", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Page[T]{
		Items:       records,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}

// Create inserts one record.
func (g *Gateway[T]) Create(ctx context.Context, record *T) error {
	if err := g.db.WithContext(ctx).Create(record).Error; err != nil {
		return g.fail("create", err)
	}
	logger.Infof("[Gateway] create %s", g.table)
	return nil
}

// CreateWithUser inserts one record, stamping the caller's authenticated
// identity as the owner when the record doesn't already carry one. Fails
// with AUTH_SESSION_MISSING when no identity is on the context.
func (g *Gateway[T]) CreateWithUser(ctx context.Context, record *T) error {
	owned, ok := any(record).(UserOwned)
	if !ok {
		return g.Create(ctx, record)
	}

	if owned.OwnerID() == 0 {
		userID, present := UserFrom(ctx)
		if !present {
			return apperr.New(apperr.CodeSessionMissing, "no authenticated session")
		}
		owned.SetOwnerID(userID)
	}
	return g.Create(ctx, record)
}

// Update applies a partial update by primary key and returns the updated
// record. Fails with DATABASE_NOT_FOUND if the id does not exist.
func (g *Gateway[T]) Update(ctx context.Context, id uint, values map[string]interface{}) (*T, error) {
	var model T
	result := g.db.WithContext(ctx).Model(&model).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return nil, g.fail("update", result.Error)
	}
	if result.RowsAffected == 0 && !g.Exists(ctx, id) {
		// MySQL reports changed rows, not matched rows: an update that
		// writes identical values affects zero rows even when the record
		// exists.
		return nil, apperr.New(apperr.CodeNotFound, fmt.Sprintf("%s id %d not found", g.table, id))
	}
	logger.Infof("[Gateway] update %s id=%d", g.table, id)
	return g.Get(ctx, id)
}

// Delete removes one record by id. Deleting an absent id is not an error.
func (g *Gateway[T]) Delete(ctx context.Context, id uint) error {
	var model T
	if err := g.db.WithContext(ctx).Delete(&model, id).Error; err != nil {
		return g.fail("delete", err)
	}
	logger.Infof("[Gateway] delete %s id=%d", g.table, id)
	return nil
}

// BatchDelete removes records by id.
func (g *Gateway[T]) BatchDelete(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var model T
	if err := g.db.WithContext(ctx).Delete(&model, ids).Error; err != nil {
		return g.fail("batch_delete", err)
	}
	logger.Infof("[Gateway] batch_delete %s count=%d", g.table, len(ids))
	return nil
}

// BatchCreate inserts all items in a single bulk insert.
func (g *Gateway[T]) BatchCreate(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	if err := g.db.WithContext(ctx).CreateInBatches(&items, 100).Error; err != nil {
		return g.fail("batch_create", err)
	}
	logger.Infof("[Gateway] batch_create %s count=%d", g.table, len(items))
	return nil
}

// BatchUpdate applies updates sequentially, one record at a time. There is
// no transactional guarantee across items: a failure leaves earlier updates
// applied.
func (g *Gateway[T]) BatchUpdate(ctx context.Context, updates []BatchUpdateItem) error {
	for _, u := range updates {
		if _, err := g.Update(ctx, u.ID, u.Values); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of records matching the filters.
func (g *Gateway[T]) Count(ctx context.Context, filters []Filter) (int64, error) {
	query, err := g.buildQuery(ctx, ListOptions{Filters: filters})
	if err != nil {
		return 0, err
	}
	var model T
	var total int64
	if err := query.Model(&model).Count(&total).Error; err != nil {
		return 0, g.fail("count", err)
	}
	return total, nil
}

// Exists reports whether a record with the given id exists. Returns false
// on any failure; this is a soft check, not a gate.
func (g *Gateway[T]) Exists(ctx context.Context, id uint) bool {
	var model T
	var total int64
	err := g.db.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&total).Error
	if err != nil {
		logger.Warnf("[Gateway] exists %s id=%d failed: %v", g.table, id, err)
		return false
	}
	return total > 0
}

func (g *Gateway[T]) buildQuery(ctx context.Context, opts ListOptions) (*gorm.DB, error) {
	query := g.db.WithContext(ctx)

	for _, f := range opts.Filters {
		if !g.columns[f.Field] {
			return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("unknown filter field %q", f.Field))
		}
		clause, args, err := filterClause(f)
		if err != nil {
			return nil, err
		}
		if args == nil {
			query = query.Where(clause)
		} else {
			query = query.Where(clause, args...)
		}
	}

	for _, s := range opts.Sorts {
		if !g.columns[s.Field] {
			return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("unknown sort field %q", s.Field))
		}
		dir := "DESC"
		if s.Ascending {
			dir = "ASC"
		}
		query = query.Order(s.Field + " " + dir)
	}

	return query, nil
}

func filterClause(f Filter) (string, []interface{}, error) {
	switch f.Op {
	case OpEq, "":
		return f.Field + " = ?", []interface{}{f.Value}, nil
	case OpNeq:
		return f.Field + " <> ?", []interface{}{f.Value}, nil
	case OpGt:
		return f.Field + " > ?", []interface{}{f.Value}, nil
	case OpGte:
		return f.Field + " >= ?", []interface{}{f.Value}, nil
	case OpLt:
		return f.Field + " < ?", []interface{}{f.Value}, nil
	case OpLte:
		return f.Field + " <= ?", []interface{}{f.Value}, nil
	case OpLike:
		return f.Field + " LIKE ?", []interface{}{f.Value}, nil
	case OpILike:
		// Portable across sqlite/mysql/postgres; ILIKE is postgres-only.
		return "lower(" + f.Field + ") LIKE lower(?)", []interface{}{f.Value}, nil
	case OpIn:
		return f.Field + " IN ?", []interface{}{f.Value}, nil
	case OpIs:
		if f.Value == nil {
			return f.Field + " IS NULL", nil, nil
		}
		return f.Field + " IS ?", []interface{}{f.Value}, nil
	}
	return "", nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("unknown filter operator %q", f.Op))
}

func (g *Gateway[T]) fail(op string, err error) *apperr.Error {
	normalized := apperr.Normalize(err)
	logger.Error().
		Str("table", g.table).
		Str("op", op).
		Str("code", string(normalized.Code)).
		Err(err).
		Msg("gateway operation failed")
	return normalized
}
