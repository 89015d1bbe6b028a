package context

import (
	stdcontext "context"
	"strings"
)

type requestIDKey struct{}
type companyIDKey struct{}
type actorKey struct{}

type actor struct {
	actorType string
	actorID   string
}

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	requestID = strings.TrimSpace(requestID)
	if ctx == nil || requestID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func WithCompanyID(ctx stdcontext.Context, companyID string) stdcontext.Context {
	companyID = strings.TrimSpace(companyID)
	if ctx == nil || companyID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, companyIDKey{}, companyID)
}

func CompanyIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(companyIDKey{}).(string)
	return value
}

func WithActor(ctx stdcontext.Context, actorType, actorID string) stdcontext.Context {
	if ctx == nil {
		return ctx
	}
	return stdcontext.WithValue(ctx, actorKey{}, actor{
		actorType: strings.TrimSpace(actorType),
		actorID:   strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx stdcontext.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(actorKey{}).(actor)
	if !ok {
		return "", ""
	}
	return value.actorType, value.actorID
}

// Detach copies request-scoped identifiers onto a fresh background context.
func Detach(ctx stdcontext.Context) stdcontext.Context {
	out := stdcontext.Background()
	if ctx == nil {
		return out
	}
	out = WithRequestID(out, RequestIDFromContext(ctx))
	out = WithCompanyID(out, CompanyIDFromContext(ctx))
	if actorType, actorID := ActorFromContext(ctx); actorType != "" || actorID != "" {
		out = WithActor(out, actorType, actorID)
	}
	return out
}
