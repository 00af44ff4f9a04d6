package api

import (
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/louhia/hankintadata/pkg/kit"
	"github.com/louhia/hankintadata/pkg/store"
)

// RegisterMCPTools registers the query-service MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, invoices *store.InvoiceStore, ledger *store.Ledger) {
	registerSearchInvoices(srv, invoices)
	registerProcurementStats(srv, invoices)
	registerListImports(srv, ledger)
}

func registerSearchInvoices(srv *server.MCPServer, invoices *store.InvoiceStore) {
	tool := mcp.NewTool("search_invoices",
		mcp.WithDescription("Search Finnish government procurement invoices with filters (supplier, category, city, unit, sector, year, amount and date ranges)."),
		mcp.WithString("supplier", mcp.Description("Supplier name substring")),
		mcp.WithString("supplier_id", mcp.Description("Supplier business id (y-tunnus), exact match")),
		mcp.WithString("category", mcp.Description("Procurement category substring")),
		mcp.WithString("city", mcp.Description("Supplier municipality substring")),
		mcp.WithString("unit", mcp.Description("Procurement unit substring")),
		mcp.WithString("sector", mcp.Description("Sector, exact match")),
		mcp.WithString("year", mcp.Description("Source data year, exact match")),
		mcp.WithString("limit", mcp.Description("Page size (default 50, max 500)")),
		mcp.WithString("offset", mcp.Description("Page offset")),
	)

	kit.RegisterMCPTool(srv, tool, searchInvoicesEndpoint(invoices), func(req mcp.CallToolRequest) (any, error) {
		args := req.GetArguments()
		f := store.InvoiceFilter{
			SupplierQuery: stringArg(args, "supplier"),
			SupplierID:    stringArg(args, "supplier_id"),
			CategoryQuery: stringArg(args, "category"),
			CityQuery:     stringArg(args, "city"),
			UnitQuery:     stringArg(args, "unit"),
			Sector:        stringArg(args, "sector"),
		}
		var err error
		if f.Year, err = intArg(args, "year"); err != nil {
			return nil, err
		}
		if f.Limit, err = intArg(args, "limit"); err != nil {
			return nil, err
		}
		if f.Offset, err = intArg(args, "offset"); err != nil {
			return nil, err
		}
		return &searchReq{Filter: f}, nil
	})
}

func registerProcurementStats(srv *server.MCPServer, invoices *store.InvoiceStore) {
	tool := mcp.NewTool("procurement_stats",
		mcp.WithDescription("Per-year totals over the procurement invoice dataset: invoice counts and summed amounts."),
	)

	kit.RegisterMCPTool(srv, tool, yearStatsEndpoint(invoices), func(mcp.CallToolRequest) (any, error) {
		return nil, nil
	})
}

func registerListImports(srv *server.MCPServer, ledger *store.Ledger) {
	tool := mcp.NewTool("list_imports",
		mcp.WithDescription("List the import ledger: one row per source file with year, record count and status."),
	)

	kit.RegisterMCPTool(srv, tool, listImportsEndpoint(ledger), func(mcp.CallToolRequest) (any, error) {
		return nil, nil
	})
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

func intArg(args map[string]any, name string) (int, error) {
	v, _ := args[name].(string)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
