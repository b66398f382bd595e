package models

import "encoding/json"

type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// APIErrorBody is the structured error payload produced by the edge gate and
// the backend API alike.
type APIErrorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}
