package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Init(context.Background(), db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return db
}

func testInvoice(id string, year int, amount float64) *Invoice {
	return &Invoice{
		InvoiceID:    id,
		Unit:         "Verohallinto",
		SupplierID:   "0123456-7",
		SupplierName: "Acme Oy",
		SupplierCity: "Helsinki",
		Category:     "Palvelut",
		PostingDate:  fmt.Sprintf("%d-06-15", year),
		Amount:       amount,
		Sector:       "Valtio",
		Year:         year,
	}
}

func TestUpsertBatchReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(openTestDB(t))

	if err := s.UpsertBatch(ctx, []*Invoice{testInvoice("L-1", 2023, 100)}); err != nil {
		t.Fatal(err)
	}

	// Same lasku_id again: the row is replaced, not duplicated.
	updated := testInvoice("L-1", 2023, 250)
	updated.SupplierName = "Beta Oy"
	if err := s.UpsertBatch(ctx, []*Invoice{updated}); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}

	rows, _, err := s.Search(ctx, InvoiceFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Amount != 250 || rows[0].SupplierName != "Beta Oy" {
		t.Errorf("row not replaced: %+v", rows[0])
	}
}

func TestUpsertBatchEmpty(t *testing.T) {
	s := NewInvoiceStore(openTestDB(t))
	if err := s.UpsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(openTestDB(t))

	a := testInvoice("L-1", 2022, 50)
	b := testInvoice("L-2", 2023, 500)
	b.SupplierName = "Nokia Oyj"
	b.SupplierCity = "Espoo"
	b.Category = "Tavarat"
	c := testInvoice("L-3", 2023, 5000)
	c.PostingDate = "2023-03-01"
	c.Sector = "Kunta"
	if err := s.UpsertBatch(ctx, []*Invoice{a, b, c}); err != nil {
		t.Fatal(err)
	}

	min := 100.0
	max := 1000.0
	tests := []struct {
		name   string
		filter InvoiceFilter
		want   []string
	}{
		{"all", InvoiceFilter{}, []string{"L-2", "L-3", "L-1"}}, // posting date desc
		{"year", InvoiceFilter{Year: 2022}, []string{"L-1"}},
		{"supplier substring", InvoiceFilter{SupplierQuery: "okia"}, []string{"L-2"}},
		{"supplier id", InvoiceFilter{SupplierID: "0123456-7"}, []string{"L-2", "L-3", "L-1"}},
		{"category", InvoiceFilter{CategoryQuery: "Tavar"}, []string{"L-2"}},
		{"city", InvoiceFilter{CityQuery: "Espoo"}, []string{"L-2"}},
		{"sector exact", InvoiceFilter{Sector: "Kunta"}, []string{"L-3"}},
		{"amount range", InvoiceFilter{MinAmount: &min, MaxAmount: &max}, []string{"L-2"}},
		{"date range", InvoiceFilter{FromDate: "2023-01-01", ToDate: "2023-12-31"}, []string{"L-2", "L-3"}},
		{"no match", InvoiceFilter{Year: 1999}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total, err := s.Search(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if total != len(tt.want) {
				t.Errorf("total = %d, want %d", total, len(tt.want))
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.want))
			}
			for i, id := range tt.want {
				if rows[i].InvoiceID != id {
					t.Errorf("row[%d] = %q, want %q", i, rows[i].InvoiceID, id)
				}
			}
		})
	}
}

func TestSearchPagination(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(openTestDB(t))

	var batch []*Invoice
	for i := 0; i < 120; i++ {
		batch = append(batch, testInvoice(fmt.Sprintf("L-%03d", i), 2023, float64(i)))
	}
	if err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}

	rows, total, err := s.Search(ctx, InvoiceFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != defaultPageSize || total != 120 {
		t.Errorf("default page: %d rows, total %d", len(rows), total)
	}

	rows, _, err = s.Search(ctx, InvoiceFilter{Limit: 30, Offset: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 20 {
		t.Errorf("last page: %d rows, want 20", len(rows))
	}

	rows, _, err = s.Search(ctx, InvoiceFilter{Limit: 10_000})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 120 {
		t.Errorf("capped page: %d rows, want 120", len(rows))
	}
}

func TestYearStats(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(openTestDB(t))

	if err := s.UpsertBatch(ctx, []*Invoice{
		testInvoice("L-1", 2022, 10),
		testInvoice("L-2", 2022, 20),
		testInvoice("L-3", 2023, 5),
	}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.YearStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats[0].Year != 2023 || stats[0].Invoices != 1 || stats[0].Total != 5 {
		t.Errorf("2023 stat = %+v", stats[0])
	}
	if stats[1].Year != 2022 || stats[1].Invoices != 2 || stats[1].Total != 30 {
		t.Errorf("2022 stat = %+v", stats[1])
	}
}

func TestClearWipesEverything(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewInvoiceStore(db)
	l := NewLedger(db)

	if err := s.UpsertBatch(ctx, []*Invoice{testInvoice("L-1", 2023, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkPending(ctx, &ImportRecord{ResourceID: "r1", Name: "f", URL: "u"}); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("invoices remain: %d", n)
	}
	recs, err := l.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("ledger rows remain: %d", len(recs))
	}
}

func TestLedgerTransitions(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openTestDB(t))

	rec := &ImportRecord{ResourceID: "r1", Name: "th_data_2023.csv", URL: "https://example.fi/f.csv", Year: 2023}
	if err := l.MarkPending(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := l.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPending || got.DownloadedAt.IsZero() {
		t.Errorf("pending row: %+v", got)
	}

	if err := l.Complete(ctx, "r1", 4321); err != nil {
		t.Fatal(err)
	}
	got, _ = l.Get(ctx, "r1")
	if got.Status != StatusCompleted || got.RecordCount != 4321 {
		t.Errorf("completed row: %+v", got)
	}

	// A re-import replaces the completed row with a fresh pending one.
	if err := l.MarkPending(ctx, &ImportRecord{ResourceID: "r1", Name: "th_data_2023.csv", URL: "https://example.fi/f.csv", Year: 2023}); err != nil {
		t.Fatal(err)
	}
	got, _ = l.Get(ctx, "r1")
	if got.Status != StatusPending || got.RecordCount != 0 {
		t.Errorf("re-pending row: %+v", got)
	}

	if err := l.Fail(ctx, "r1", "stream corrupt"); err != nil {
		t.Fatal(err)
	}
	got, _ = l.Get(ctx, "r1")
	if got.Status != StatusFailed || got.Error != "stream corrupt" {
		t.Errorf("failed row: %+v", got)
	}
}

func TestLedgerCompleteWithoutRow(t *testing.T) {
	l := NewLedger(openTestDB(t))
	if err := l.Complete(context.Background(), "ghost", 1); err == nil {
		t.Fatal("expected error completing a missing row")
	}
}

func TestLedgerGetMissing(t *testing.T) {
	l := NewLedger(openTestDB(t))
	rec, err := l.Get(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil", rec)
	}
}
