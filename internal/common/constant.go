// Package common contains shared constants and sentinel errors used across
// supportdesk components.
package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token on
// outbound API requests.
const AuthorizationHeaderName = "Authorization"

// DefaultContentType is sent with a direct transfer when a file declares no
// type of its own.
const DefaultContentType = "application/octet-stream"
