package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/obralink/importkit/pkg/constants"
)

var (
	ErrNoTenantID = errors.New("no tenant id found in context")
	ErrNoUserID   = errors.New("no user id found in context")
)

func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	v := ctx.Value(constants.TenantIDKey)
	if v == nil {
		return uuid.Nil, ErrNoTenantID
	}
	return v.(uuid.UUID), nil
}

func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, constants.UserIDKey, userID)
}

func UseUserID(ctx context.Context) (uint, error) {
	v := ctx.Value(constants.UserIDKey)
	if v == nil {
		return 0, ErrNoUserID
	}
	return v.(uint), nil
}
