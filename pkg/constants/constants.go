package constants

type contextKey string

const (
	PoolKey     contextKey = "pool"
	TxKey       contextKey = "tx"
	TenantIDKey contextKey = "tenantID"
	UserIDKey   contextKey = "userID"
	LoggerKey   contextKey = "logger"
)
