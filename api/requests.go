package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	auth "github.com/goliatone/go-donor-auth"
)

// CreateResult is the answer to POST /requests
type CreateResult struct {
	InsertedID   string `json:"insertedId"`
	Acknowledged bool   `json:"acknowledged,omitempty"`
}

// Created reports whether the backend stored the request
func (r *CreateResult) Created() bool {
	return r != nil && r.InsertedID != ""
}

// DonationRequestRecord is a stored donation request
type DonationRequestRecord struct {
	ID string `json:"_id"`
	auth.DonationRequest
}

// RequestsClient calls the protected donation request endpoints
type RequestsClient struct {
	secure *auth.SecureClient
}

// NewRequestsClient wraps a SecureClient
func NewRequestsClient(secure *auth.SecureClient) *RequestsClient {
	return &RequestsClient{secure: secure}
}

// Create posts a new donation request
func (c *RequestsClient) Create(ctx context.Context, req auth.DonationRequest) (*CreateResult, error) {
	var res CreateResult
	if err := c.secure.DoJSON(ctx, http.MethodPost, "/requests", req, &res); err != nil {
		return nil, fmt.Errorf("api.CreateRequest: %w", err)
	}
	return &res, nil
}

// ListByRequester returns the requests created by email
func (c *RequestsClient) ListByRequester(ctx context.Context, email string) ([]DonationRequestRecord, error) {
	params := url.Values{}
	params.Set("email", email)

	var records []DonationRequestRecord
	if err := c.secure.DoJSON(ctx, http.MethodGet, "/requests?"+params.Encode(), nil, &records); err != nil {
		return nil, fmt.Errorf("api.ListRequests: %w", err)
	}
	return records, nil
}
