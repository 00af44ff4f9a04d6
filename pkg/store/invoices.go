package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// InvoiceStore performs all writes and reads on the invoices table.
type InvoiceStore struct {
	db *bun.DB
}

func NewInvoiceStore(db *bun.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// UpsertBatch inserts-or-replaces a batch of invoices by lasku_id inside a
// single transaction. A failure leaves the whole batch unapplied.
func (s *InvoiceStore) UpsertBatch(ctx context.Context, rows []*Invoice) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (lasku_id) DO UPDATE").
			Set("hankintayksikko = EXCLUDED.hankintayksikko").
			Set("hankintayksikko_tunnus = EXCLUDED.hankintayksikko_tunnus").
			Set("ylaorganisaatio = EXCLUDED.ylaorganisaatio").
			Set("ylaorganisaatio_tunnus = EXCLUDED.ylaorganisaatio_tunnus").
			Set("toimittaja_y_tunnus = EXCLUDED.toimittaja_y_tunnus").
			Set("toimittaja_nimi = EXCLUDED.toimittaja_nimi").
			Set("toimittajan_kotipaikka = EXCLUDED.toimittajan_kotipaikka").
			Set("tili_tunnus = EXCLUDED.tili_tunnus").
			Set("hankintakategoria = EXCLUDED.hankintakategoria").
			Set("tuoteryhma = EXCLUDED.tuoteryhma").
			Set("tositepaiva = EXCLUDED.tositepaiva").
			Set("summa = EXCLUDED.summa").
			Set("sektori = EXCLUDED.sektori").
			Set("vuosi = EXCLUDED.vuosi").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert batch of %d: %w", len(rows), err)
		}
		return nil
	})
}

// Clear deletes every invoice and every ledger row. This is the global wipe
// behind the --clear flag: it is not scoped to the years selected for a run.
func (s *InvoiceStore) Clear(ctx context.Context) error {
	if _, err := s.db.NewDelete().Model((*Invoice)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("clear invoices: %w", err)
	}
	if _, err := s.db.NewDelete().Model((*ImportRecord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

// Count returns the number of invoice rows.
func (s *InvoiceStore) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Invoice)(nil)).Count(ctx)
}

// InvoiceFilter holds the parameterized predicates of the query service.
// String queries are substring matches; Year and Sector are exact.
type InvoiceFilter struct {
	SupplierQuery string
	SupplierID    string
	CategoryQuery string
	CityQuery     string
	UnitQuery     string
	Sector        string
	Year          int
	MinAmount     *float64
	MaxAmount     *float64
	FromDate      string
	ToDate        string
	Limit         int
	Offset        int
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Search returns one page of invoices sorted by posting date descending,
// along with the total number of rows matching the filter.
func (s *InvoiceStore) Search(ctx context.Context, f InvoiceFilter) ([]*Invoice, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var invoices []*Invoice
	q := s.db.NewSelect().Model(&invoices)

	if f.SupplierQuery != "" {
		q = q.Where("toimittaja_nimi LIKE ?", "%"+f.SupplierQuery+"%")
	}
	if f.SupplierID != "" {
		q = q.Where("toimittaja_y_tunnus = ?", f.SupplierID)
	}
	if f.CategoryQuery != "" {
		q = q.Where("hankintakategoria LIKE ?", "%"+f.CategoryQuery+"%")
	}
	if f.CityQuery != "" {
		q = q.Where("toimittajan_kotipaikka LIKE ?", "%"+f.CityQuery+"%")
	}
	if f.UnitQuery != "" {
		q = q.Where("hankintayksikko LIKE ?", "%"+f.UnitQuery+"%")
	}
	if f.Sector != "" {
		q = q.Where("sektori = ?", f.Sector)
	}
	if f.Year != 0 {
		q = q.Where("vuosi = ?", f.Year)
	}
	if f.MinAmount != nil {
		q = q.Where("summa >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("summa <= ?", *f.MaxAmount)
	}
	if f.FromDate != "" {
		q = q.Where("tositepaiva >= ?", f.FromDate)
	}
	if f.ToDate != "" {
		q = q.Where("tositepaiva <= ?", f.ToDate)
	}

	total, err := q.OrderExpr("tositepaiva DESC").
		Limit(limit).
		Offset(f.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("search invoices: %w", err)
	}
	if invoices == nil {
		invoices = []*Invoice{}
	}
	return invoices, total, nil
}

// YearStat aggregates one source year.
type YearStat struct {
	Year     int     `json:"year"`
	Invoices int     `json:"invoices"`
	Total    float64 `json:"total_amount"`
}

// YearStats returns per-year invoice counts and summed amounts, newest first.
func (s *InvoiceStore) YearStats(ctx context.Context) ([]YearStat, error) {
	var stats []YearStat
	err := s.db.NewSelect().
		Model((*Invoice)(nil)).
		ColumnExpr("vuosi AS year").
		ColumnExpr("COUNT(*) AS invoices").
		ColumnExpr("COALESCE(SUM(summa), 0) AS total").
		GroupExpr("vuosi").
		OrderExpr("vuosi DESC").
		Scan(ctx, &stats)
	if err != nil {
		return nil, fmt.Errorf("year stats: %w", err)
	}
	if stats == nil {
		stats = []YearStat{}
	}
	return stats, nil
}
