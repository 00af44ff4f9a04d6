package api

import (
	"context"

	"github.com/louhia/hankintadata/pkg/kit"
	"github.com/louhia/hankintadata/pkg/store"
)

// Shared request/response types used by both HTTP and MCP transports.

type searchReq struct {
	Filter store.InvoiceFilter
}

type searchResponse struct {
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	Invoices []*store.Invoice `json:"invoices"`
}

type statsResponse struct {
	Years []store.YearStat `json:"years"`
}

type importsResponse struct {
	Imports []*store.ImportRecord `json:"imports"`
}

func searchInvoicesEndpoint(invoices *store.InvoiceStore) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*searchReq)
		page, total, err := invoices.Search(ctx, req.Filter)
		if err != nil {
			return nil, err
		}
		return searchResponse{
			Total:    total,
			Limit:    req.Filter.Limit,
			Offset:   req.Filter.Offset,
			Invoices: page,
		}, nil
	}
}

func yearStatsEndpoint(invoices *store.InvoiceStore) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		stats, err := invoices.YearStats(ctx)
		if err != nil {
			return nil, err
		}
		return statsResponse{Years: stats}, nil
	}
}

func listImportsEndpoint(ledger *store.Ledger) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		recs, err := ledger.List(ctx)
		if err != nil {
			return nil, err
		}
		return importsResponse{Imports: recs}, nil
	}
}
