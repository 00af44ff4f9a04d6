package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Invoice is one canonical procurement invoice row. Column names keep the
// Finnish source vocabulary; lasku_id is the dataset-wide unique key and
// upsert-by-lasku_id is the only mutation path.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices,alias:i"`

	ID            int64   `bun:"id,pk,autoincrement" json:"-"`
	InvoiceID     string  `bun:"lasku_id,unique,notnull" json:"invoice_id"`
	Unit          string  `bun:"hankintayksikko,notnull" json:"procurement_unit"`
	UnitCode      string  `bun:"hankintayksikko_tunnus" json:"procurement_unit_code,omitempty"`
	ParentOrg     string  `bun:"ylaorganisaatio" json:"parent_organization,omitempty"`
	ParentOrgCode string  `bun:"ylaorganisaatio_tunnus" json:"parent_organization_code,omitempty"`
	SupplierID    string  `bun:"toimittaja_y_tunnus" json:"supplier_business_id,omitempty"`
	SupplierName  string  `bun:"toimittaja_nimi" json:"supplier_name,omitempty"`
	SupplierCity  string  `bun:"toimittajan_kotipaikka" json:"supplier_city,omitempty"`
	AccountCode   string  `bun:"tili_tunnus" json:"account_code,omitempty"`
	Category      string  `bun:"hankintakategoria,notnull" json:"category"`
	ProductGroup  string  `bun:"tuoteryhma" json:"product_group,omitempty"`
	PostingDate   string  `bun:"tositepaiva,notnull" json:"posting_date"`
	Amount        float64 `bun:"summa,notnull" json:"amount"`
	Sector        string  `bun:"sektori" json:"sector,omitempty"`
	Year          int     `bun:"vuosi,notnull" json:"year"`
}

// Ledger statuses. A pending row is written before a file's parse pass
// starts, so observers can tell an in-flight import from one that never ran.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ImportRecord is one ledger row per source resource, keyed by the catalog's
// resource id. Re-importing replaces the row; the ledger reflects the latest
// attempt only.
type ImportRecord struct {
	bun.BaseModel `bun:"table:import_ledger,alias:l"`

	ResourceID   string    `bun:"resource_id,pk" json:"resource_id"`
	Name         string    `bun:"name,notnull" json:"name"`
	URL          string    `bun:"url,notnull" json:"url"`
	Format       string    `bun:"format" json:"format,omitempty"`
	Year         int       `bun:"year" json:"year,omitempty"`
	LastModified string    `bun:"last_modified" json:"last_modified,omitempty"`
	DownloadedAt time.Time `bun:"downloaded_at,notnull" json:"downloaded_at"`
	RecordCount  int       `bun:"record_count,notnull,default:0" json:"record_count"`
	Status       string    `bun:"status,notnull" json:"status"`
	Error        string    `bun:"error_msg" json:"error,omitempty"`
}
