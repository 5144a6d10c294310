// Package dto defines the wire types shared by the HTTP adapters.
package dto

// TokenResponse is the token endpoint's success body. Both fields
// carry the same signed token; older registry daemons read "token",
// newer ones prefer "access_token".
type TokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"` //nolint:gosec // wire field required by the registry token protocol
}
