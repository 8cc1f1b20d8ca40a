package common

// AuthorizationHeaderName carries the bearer access token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the scheme prefix expected in AuthorizationHeaderName.
const BearerScheme = "Bearer"

// MinSecretLength is the minimum accepted length of the signing secret.
const MinSecretLength = 32

// RequestIDHeaderName is echoed back on every response.
const RequestIDHeaderName = "X-Request-ID"
