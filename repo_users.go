package authkit

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	List(ctx context.Context, criteria UserListCriteria) ([]*User, int, error)
	ListTx(ctx context.Context, tx bun.IDB, criteria UserListCriteria) ([]*User, int, error)
	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Update(ctx context.Context, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Delete(ctx context.Context, id int64) error
	DeleteTx(ctx context.Context, tx bun.IDB, id int64) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the bun-backed users repository.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) GetByID(ctx context.Context, id int64) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userNotFound("id", id)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user by id")
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userNotFound("email", email)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user by email")
	}

	return record, nil
}

// UserListCriteria pages and filters the user listing. Search matches
// against the email column as a substring.
type UserListCriteria struct {
	Page    int
	PerPage int
	Search  string
}

const (
	defaultUsersPerPage = 10
	maxUsersPerPage     = 100
)

func (c UserListCriteria) normalize() UserListCriteria {
	if c.Page < 1 {
		c.Page = 1
	}
	if c.PerPage < 1 {
		c.PerPage = defaultUsersPerPage
	}
	if c.PerPage > maxUsersPerPage {
		c.PerPage = maxUsersPerPage
	}
	return c
}

func (a *users) List(ctx context.Context, criteria UserListCriteria) ([]*User, int, error) {
	return a.ListTx(ctx, a.db, criteria)
}

func (a *users) ListTx(ctx context.Context, tx bun.IDB, criteria UserListCriteria) ([]*User, int, error) {
	criteria = criteria.normalize()

	records := []*User{}
	q := tx.NewSelect().
		Model(&records).
		Order("id ASC").
		Limit(criteria.PerPage).
		Offset((criteria.Page - 1) * criteria.PerPage)

	if criteria.Search != "" {
		q = q.Where("?TableAlias.email LIKE ?", "%"+criteria.Search+"%")
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	return records, total, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)

	_, err := tx.NewInsert().
		Model(record).
		Exec(ctx)

	if err != nil {
		// Uniqueness is enforced by storage; we only translate the outcome.
		if isUniqueViolation(err) {
			return nil, NewConflictError("email")
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create user")
	}

	return record, nil
}

func (a *users) Update(ctx context.Context, record *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, record)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	now := time.Now()
	record.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(record).
		OmitZero().
		WherePK().
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, NewConflictError("email")
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not update user")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, userNotFound("id", record.ID)
	}

	return record, nil
}

func (a *users) Delete(ctx context.Context, id int64) error {
	return a.DeleteTx(ctx, a.db, id)
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id int64) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not delete user")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return userNotFound("id", id)
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

func userNotFound(field string, value any) error {
	clone := ErrUserNotFound.Clone()
	if clone == nil {
		return ErrUserNotFound
	}
	return clone.WithMetadata(map[string]any{field: value})
}
