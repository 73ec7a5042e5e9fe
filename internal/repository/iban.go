package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/deppfellow/iban-manager/internal/model/iban"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// IBANRepository implements IBANStore with bun, on PostgreSQL or SQLite.
type IBANRepository struct {
	db   bun.IDB // *bun.DB, or the bun.Tx of a running InTx
	root *bun.DB
}

var _ IBANStore = (*IBANRepository)(nil)

func NewIBANRepository(db *bun.DB) *IBANRepository {
	return &IBANRepository{db: db, root: db}
}

func (r *IBANRepository) List(ctx context.Context, filter iban.ListFilter) ([]iban.IBAN, error) {
	records := make([]iban.IBAN, 0)

	q := r.db.NewSelect().Model(&records)

	if search := strings.TrimSpace(filter.Search); search != "" {
		text := "%" + escapeLike(strings.ToLower(search)) + "%"
		number := "%" + escapeLike(strings.ToUpper(strings.ReplaceAll(search, " ", ""))) + "%"

		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("i.iban_number LIKE ? ESCAPE '!'", number).
				WhereOr("LOWER(i.bank_name) LIKE ? ESCAPE '!'", text).
				WhereOr("LOWER(i.account_holder) LIKE ? ESCAPE '!'", text).
				WhereOr("LOWER(i.description) LIKE ? ESCAPE '!'", text)
		})
	}

	err := q.OrderExpr("i.created_at DESC, i.id DESC").Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not list ibans")
	}

	return records, nil
}

func (r *IBANRepository) GetByID(ctx context.Context, id int64) (*iban.IBAN, error) {
	var record iban.IBAN
	err := r.db.NewSelect().
		Model(&record).
		Where("i.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get iban %d", id)
	}

	return &record, nil
}

func (r *IBANRepository) NumberTaken(ctx context.Context, number string, excludeID int64) (bool, error) {
	q := r.db.NewSelect().
		Model((*iban.IBAN)(nil)).
		Where("i.iban_number = ?", number)
	if excludeID > 0 {
		q = q.Where("i.id <> ?", excludeID)
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, "could not check iban number")
	}

	return exists, nil
}

func (r *IBANRepository) Create(ctx context.Context, record *iban.IBAN) error {
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return errors.Wrap(err, "could not insert iban")
	}
	return nil
}

func (r *IBANRepository) Update(ctx context.Context, record *iban.IBAN) error {
	res, err := r.db.NewUpdate().
		Model(record).
		Column("iban_number", "bank_name", "account_holder", "description", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "could not update iban %d", record.ID)
	}

	return expectOneRow(res, record.ID)
}

func (r *IBANRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*iban.IBAN)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "could not delete iban %d", id)
	}

	return expectOneRow(res, id)
}

func (r *IBANRepository) InTx(ctx context.Context, fn func(ctx context.Context, store IBANStore) error) error {
	if _, ok := r.db.(bun.Tx); ok {
		return fn(ctx, r)
	}

	return r.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &IBANRepository{db: tx, root: r.root})
	})
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "iban %d", id)
	}
	return nil
}

// escapeLike escapes LIKE wildcards with '!' as the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
