package shared

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	companyIDKey contextKey = "company_id"
)

// ContextWithUserID stores the authenticated user id on the context.
func ContextWithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// ContextWithCompanyID stores the resolved tenant company id on the context.
func ContextWithCompanyID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, companyIDKey, id)
}

// CompanyIDFromContext returns the resolved tenant company id, if any.
func CompanyIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(companyIDKey).(uuid.UUID)
	return id, ok
}
