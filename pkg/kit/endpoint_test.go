package kit

import (
	"context"
	"testing"
)

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				calls = append(calls, name)
				return next(ctx, req)
			}
		}
	}

	ep := Chain(mw("a"), mw("b"), mw("c"))(func(ctx context.Context, req any) (any, error) {
		calls = append(calls, "endpoint")
		return req, nil
	})

	resp, err := ep(context.Background(), "hello")
	if err != nil || resp != "hello" {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
	want := []string{"a", "b", "c", "endpoint"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Errorf("default transport = %q", got)
	}
	ctx = WithTransport(ctx, "mcp_quic")
	if got := GetTransport(ctx); got != "mcp_quic" {
		t.Errorf("transport = %q", got)
	}

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("default request id = %q", got)
	}
	ctx = WithRequestID(ctx, "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Errorf("request id = %q", got)
	}
}
