package ingest

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/louhia/hankintadata/pkg/store"
)

// Canonical field keys. The per-year exports name their columns either in
// Finnish or with a translated English alias; resolution tries the
// candidates in order and takes the first header that matches.
const (
	fieldInvoiceID     = "lasku_id"
	fieldUnit          = "hankintayksikko"
	fieldUnitCode      = "hankintayksikko_tunnus"
	fieldParentOrg     = "ylaorganisaatio"
	fieldParentOrgCode = "ylaorganisaatio_tunnus"
	fieldSupplierID    = "toimittaja_y_tunnus"
	fieldSupplierName  = "toimittaja_nimi"
	fieldSupplierCity  = "toimittajan_kotipaikka"
	fieldAccountCode   = "tili_tunnus"
	fieldCategory      = "hankintakategoria"
	fieldProductGroup  = "tuoteryhma"
	fieldPostingDate   = "tositepaiva"
	fieldAmount        = "summa"
	fieldSector        = "sektori"
)

// fieldAliases is the fixed alias table: Finnish primary column name first,
// then the English alias used by the translated exports. Not configurable at
// runtime.
var fieldAliases = map[string][]string{
	fieldInvoiceID:     {"lasku_id", "invoice_id"},
	fieldUnit:          {"hankintayksikko", "procurement_unit"},
	fieldUnitCode:      {"hankintayksikko_tunnus", "procurement_unit_code"},
	fieldParentOrg:     {"ylaorganisaatio", "parent_organization"},
	fieldParentOrgCode: {"ylaorganisaatio_tunnus", "parent_organization_code"},
	fieldSupplierID:    {"toimittaja_y_tunnus", "supplier_business_id"},
	fieldSupplierName:  {"toimittaja_nimi", "supplier_name"},
	fieldSupplierCity:  {"toimittajan_kotipaikka", "supplier_city"},
	fieldAccountCode:   {"tili_tunnus", "account_code"},
	fieldCategory:      {"hankintakategoria", "procurement_category"},
	fieldProductGroup:  {"tuoteryhma", "product_group"},
	fieldPostingDate:   {"tositepaiva", "posting_date"},
	fieldAmount:        {"summa", "amount"},
	fieldSector:        {"sektori", "sector"},
}

var foldHeader = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeHeader folds a source column name for alias matching: strip a
// possible BOM, lowercase, drop accents (Hankintayksikkö -> hankintayksikko),
// and squash spaces to underscores.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(strings.ToLower(h))
	h, _, _ = transform.String(foldHeader, h)
	return strings.ReplaceAll(h, " ", "_")
}

// rowMapper resolves canonical fields to column indexes for one file's
// header.
type rowMapper struct {
	idx map[string]int
}

func newRowMapper(header []string) *rowMapper {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, seen := byName[name]; !seen {
			byName[name] = i
		}
	}

	idx := make(map[string]int, len(fieldAliases))
	for field, candidates := range fieldAliases {
		idx[field] = -1
		for _, cand := range candidates {
			if i, ok := byName[cand]; ok {
				idx[field] = i
				break
			}
		}
	}
	return &rowMapper{idx: idx}
}

func (m *rowMapper) get(record []string, field string) string {
	i := m.idx[field]
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseAmount coerces a posting amount in Finnish notation (decimal comma,
// space or NBSP grouping, leading minus for credit notes). Unparseable or
// missing values default to zero rather than rejecting the row; the caller
// counts how often that happened.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f': // space, NBSP, narrow NBSP grouping
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// buildInvoice maps one source record onto a canonical invoice. The returned
// reject reason is non-empty when a required field is missing; zeroed
// reports an amount that had to default to zero. The data year comes from
// the resource's filename, never from the row.
func buildInvoice(m *rowMapper, record []string, year int) (inv *store.Invoice, zeroed bool, reject string) {
	id := m.get(record, fieldInvoiceID)
	unit := m.get(record, fieldUnit)
	category := m.get(record, fieldCategory)
	date := m.get(record, fieldPostingDate)

	switch {
	case id == "":
		return nil, false, "missing invoice id"
	case unit == "":
		return nil, false, "missing procurement unit"
	case category == "":
		return nil, false, "missing procurement category"
	case date == "":
		return nil, false, "missing posting date"
	}

	amount, ok := parseAmount(m.get(record, fieldAmount))

	return &store.Invoice{
		InvoiceID:     id,
		Unit:          unit,
		UnitCode:      m.get(record, fieldUnitCode),
		ParentOrg:     m.get(record, fieldParentOrg),
		ParentOrgCode: m.get(record, fieldParentOrgCode),
		SupplierID:    m.get(record, fieldSupplierID),
		SupplierName:  m.get(record, fieldSupplierName),
		SupplierCity:  m.get(record, fieldSupplierCity),
		AccountCode:   m.get(record, fieldAccountCode),
		Category:      category,
		ProductGroup:  m.get(record, fieldProductGroup),
		PostingDate:   date,
		Amount:        amount,
		Sector:        m.get(record, fieldSector),
		Year:          year,
	}, !ok, ""
}
