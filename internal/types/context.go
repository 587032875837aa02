package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

// HeaderRequestID is echoed back on every response
const HeaderRequestID = "X-Request-ID"

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxOrgID         ContextKey = "ctx_org_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetOrgID(ctx context.Context) string {
	if orgID, ok := ctx.Value(CtxOrgID).(string); ok {
		return orgID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetOrgID sets the org ID in the context
func SetOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, CtxOrgID, orgID)
}
