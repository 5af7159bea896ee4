// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "time"

// FreeKeyRequest represents the request body for claiming a free key.
type FreeKeyRequest struct {
	UserID string `json:"userId"`
}

// FreeKeyResponse represents a freshly issued key.
type FreeKeyResponse struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
	Plan      string    `json:"plan"`
}

// CheckKeyRequest represents the request body for validating a key.
type CheckKeyRequest struct {
	Key string `json:"key"`
}

// CheckKeyResponse represents a successful key validation.
type CheckKeyResponse struct {
	Status string `json:"status"`
	Plan   string `json:"plan"`
}

// CreateScriptRequest represents the request body for creating a script.
type CreateScriptRequest struct {
	Code   string `json:"code"`
	IsPaid bool   `json:"isPaid"`
	Key    string `json:"key"`
}

// CreateScriptResponse represents a created script.
type CreateScriptResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// ListEntryRequest represents the request body for list add/remove.
type ListEntryRequest struct {
	UserID string `json:"userId"`
}

// MessageResponse is a generic human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON error envelope for panel endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
