// Package dto contains request and response shapes of the HTTP API.
package dto

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
