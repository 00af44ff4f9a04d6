package ingest

import "testing"

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lasku_ID", "lasku_id"},
		{"\ufeffLasku_ID", "lasku_id"},
		{"Hankintayksikkö", "hankintayksikko"},
		{"  Tositepäivä  ", "tositepaiva"},
		{"Supplier Name", "supplier_name"},
		{"tuoteryhmä", "tuoteryhma"},
	}
	for _, tt := range tests {
		if got := normalizeHeader(tt.in); got != tt.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1234,56", 1234.56, true},
		{"1234.56", 1234.56, true},
		{"-42,00", -42, true},
		{"1 234,56", 1234.56, true},
		{"1\u00a0234,56", 1234.56, true},
		{"1\u202f234,56", 1234.56, true},
		{"0", 0, true},
		{"", 0, false},
		{"ei tiedossa", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseAmount(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRowMapperAliases(t *testing.T) {
	// English-translated export with a BOM on the first header.
	header := []string{"\ufeffInvoice_ID", "Procurement_Unit", "Supplier Name", "Amount", "Posting_Date", "Procurement_Category"}
	m := newRowMapper(header)

	record := []string{"L-1", "Verohallinto", "Acme Oy", "99,90", "2023-04-01", "Palvelut"}
	if got := m.get(record, fieldInvoiceID); got != "L-1" {
		t.Errorf("invoice id = %q", got)
	}
	if got := m.get(record, fieldUnit); got != "Verohallinto" {
		t.Errorf("unit = %q", got)
	}
	if got := m.get(record, fieldSupplierName); got != "Acme Oy" {
		t.Errorf("supplier = %q", got)
	}
	// Columns absent from this export resolve to empty.
	if got := m.get(record, fieldSector); got != "" {
		t.Errorf("sector = %q, want empty", got)
	}
}

func TestRowMapperFinnishPrimary(t *testing.T) {
	header := []string{"Lasku_id", "Hankintayksikkö", "Hankintakategoria", "Tositepäivä", "Summa", "Sektori"}
	m := newRowMapper(header)
	record := []string{"L-2", "VM", "Tavarat", "2020-02-02", "10,00", "Valtio"}

	if got := m.get(record, fieldCategory); got != "Tavarat" {
		t.Errorf("category = %q", got)
	}
	if got := m.get(record, fieldSector); got != "Valtio" {
		t.Errorf("sector = %q", got)
	}
}

func TestRowMapperShortRecord(t *testing.T) {
	m := newRowMapper([]string{"lasku_id", "hankintayksikko", "summa"})
	// Record shorter than the header must not panic.
	if got := m.get([]string{"L-3"}, fieldAmount); got != "" {
		t.Errorf("out-of-range column = %q, want empty", got)
	}
}

func TestBuildInvoice(t *testing.T) {
	m := newRowMapper([]string{"lasku_id", "hankintayksikko", "hankintakategoria", "tositepaiva", "summa"})

	inv, zeroed, reject := buildInvoice(m, []string{"L-1", "VM", "Palvelut", "2023-01-01", "12,34"}, 2023)
	if reject != "" {
		t.Fatalf("unexpected reject: %s", reject)
	}
	if zeroed {
		t.Error("amount should have parsed")
	}
	if inv.Amount != 12.34 || inv.Year != 2023 || inv.InvoiceID != "L-1" {
		t.Errorf("invoice = %+v", inv)
	}

	// Missing required fields reject the row.
	rejects := []struct {
		record []string
		want   string
	}{
		{[]string{"", "VM", "Palvelut", "2023-01-01", "1"}, "missing invoice id"},
		{[]string{"L", "", "Palvelut", "2023-01-01", "1"}, "missing procurement unit"},
		{[]string{"L", "VM", "", "2023-01-01", "1"}, "missing procurement category"},
		{[]string{"L", "VM", "Palvelut", "", "1"}, "missing posting date"},
	}
	for _, tt := range rejects {
		_, _, reject := buildInvoice(m, tt.record, 2023)
		if reject != tt.want {
			t.Errorf("reject = %q, want %q", reject, tt.want)
		}
	}

	// Unparseable amount defaults to zero but keeps the row.
	inv, zeroed, reject = buildInvoice(m, []string{"L-9", "VM", "Palvelut", "2023-01-01", "n/a"}, 2023)
	if reject != "" || !zeroed || inv.Amount != 0 {
		t.Errorf("zero-default: inv=%+v zeroed=%v reject=%q", inv, zeroed, reject)
	}
}
