package models

import "net/http"

// Request and Response structs for the admin API

// Reset Database
// GET Path: "/v1/admin/footgun"

type ResetDbRequest struct{}

type ResetDbResponse struct {
	Header []http.Header `json:"header,omitempty" doc:"Response headers"`
}
