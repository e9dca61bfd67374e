package common

const (
	// AuthorizationHeaderName carries the bearer token on HTTP requests.
	AuthorizationHeaderName = "Authorization"

	// AuthorizationMetadataKey carries the bearer token on gRPC calls.
	// gRPC metadata keys are always lower case.
	AuthorizationMetadataKey = "authorization"

	// BearerPrefix must match exactly, including the trailing space.
	BearerPrefix = "Bearer "
)

// User-facing messages shared by the HTTP and gRPC transports and the CLI.
const (
	MsgRegistered         = "User registered successfully"
	MsgLoggedOut          = "Logged out successfully"
	MsgAlreadyInvalidated = "Token already invalidated"
	MsgEmailExists        = "Email already exists"
	MsgInvalidLogin       = "Invalid email or password"
	MsgUserNotFound       = "User not found"
	MsgMissingToken       = "Missing token"
	MsgInvalidToken       = "Invalid or expired token"
	MsgUnauthorized       = "Unauthorized"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgInternal           = "Internal error"
	MsgBadRequest         = "Invalid request body"
)
