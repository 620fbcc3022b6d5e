package logger

import "context"

// fieldsKey is the context key under which per-call log fields are
// stashed by WithFields.
type fieldsKey struct{}

// Fields carries request-scoped attributes that DebugCtx/InfoCtx/etc.
// attach to every log line for a call, so a bus connection's unique name
// and a method call's serial line up across log entries without every
// call site repeating them.
type Fields struct {
	ConnID     string
	Connection string
	Serial     uint32
	Member     string
}

// WithFields returns a context carrying f, replacing any fields already
// present.
func WithFields(ctx context.Context, f Fields) context.Context {
	return context.WithValue(ctx, fieldsKey{}, f)
}

// FromContext returns the Fields stashed on ctx, or the zero value if
// none were set.
func FromContext(ctx context.Context) Fields {
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func withCtx(ctx context.Context, args []any) []any {
	f := FromContext(ctx)
	if f == (Fields{}) {
		return args
	}
	out := make([]any, 0, 8+len(args))
	if f.ConnID != "" {
		out = append(out, "conn_id", f.ConnID)
	}
	if f.Connection != "" {
		out = append(out, "conn", f.Connection)
	}
	if f.Serial != 0 {
		out = append(out, "serial", f.Serial)
	}
	if f.Member != "" {
		out = append(out, "member", f.Member)
	}
	return append(out, args...)
}
