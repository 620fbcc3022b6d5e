package logger

import (
	"context"
	"testing"
)

func TestWithFieldsFromContext(t *testing.T) {
	f := Fields{ConnID: "c1", Connection: ":1.1", Serial: 5, Member: "Ping"}
	ctx := WithFields(context.Background(), f)

	got := FromContext(ctx)
	if got != f {
		t.Fatalf("FromContext() = %+v, want %+v", got, f)
	}
}

func TestFromContextWithoutFields(t *testing.T) {
	got := FromContext(context.Background())
	if got != (Fields{}) {
		t.Fatalf("FromContext() on bare context = %+v, want zero value", got)
	}
}

func TestWithCtxAppendsFieldsBeforeArgs(t *testing.T) {
	f := Fields{ConnID: "c1", Member: "Ping"}
	ctx := WithFields(context.Background(), f)

	out := withCtx(ctx, []any{"extra", 1})
	want := []any{"conn_id", "c1", "member", "Ping", "extra", 1}
	if len(out) != len(want) {
		t.Fatalf("withCtx() = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("withCtx()[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestWithCtxNoFieldsReturnsArgsUnchanged(t *testing.T) {
	out := withCtx(context.Background(), []any{"a", 1})
	if len(out) != 2 || out[0] != "a" || out[1] != 1 {
		t.Fatalf("withCtx() with no fields = %v, want [a 1]", out)
	}
}

func TestWithCtxOmitsZeroFields(t *testing.T) {
	f := Fields{Member: "Ping"}
	ctx := WithFields(context.Background(), f)
	out := withCtx(ctx, nil)
	want := []any{"member", "Ping"}
	if len(out) != len(want) || out[0] != want[0] || out[1] != want[1] {
		t.Fatalf("withCtx() = %v, want %v", out, want)
	}
}
