package delhivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://track.delhivery.com"
	responseBodyReadLimit int64 = 2048
)

var errAPIKeyRequired = errors.New("delhivery api key is required")

// Client wraps the Delhivery rate and shipment APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the Delhivery client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// QuoteRequest describes a rate lookup between two pincodes.
type QuoteRequest struct {
	OriginPincode      string
	DestinationPincode string
	WeightGrams        int
	CODAmountPaise     int64
}

// Quote is the normalized rate returned by the courier.
type Quote struct {
	RatePaise int64
}

// GetQuote fetches the delivery charge for a single parcel.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delhivery client not configured")
	}
	if strings.TrimSpace(req.OriginPincode) == "" || strings.TrimSpace(req.DestinationPincode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin and destination pincodes are required")
	}
	if req.WeightGrams <= 0 {
		req.WeightGrams = 500
	}

	query := url.Values{}
	query.Set("md", "S")
	query.Set("ss", "Delivered")
	query.Set("o_pin", strings.TrimSpace(req.OriginPincode))
	query.Set("d_pin", strings.TrimSpace(req.DestinationPincode))
	query.Set("cgm", strconv.Itoa(req.WeightGrams))
	if req.CODAmountPaise > 0 {
		query.Set("pt", "COD")
		query.Set("cod", strconv.FormatInt(req.CODAmountPaise/100, 10))
	} else {
		query.Set("pt", "Pre-paid")
	}

	endpoint := fmt.Sprintf("%s/api/kinko/v1/invoice/charges/.json?%s", strings.TrimRight(c.baseURL, "/"), query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build rate request")
	}
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute rate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "rate request failed")
	}

	var apiResp []struct {
		TotalAmount float64 `json:"total_amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode rate response")
	}
	if len(apiResp) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rate response is empty")
	}

	return &Quote{RatePaise: int64(apiResp[0].TotalAmount * 100)}, nil
}

// BookShipmentRequest describes one parcel to hand to the courier.
type BookShipmentRequest struct {
	OrderNumber        string
	SellerName         string
	OriginPincode      string
	DestinationPincode string
	ConsigneeName      string
	ConsigneePhone     string
	AddressLine        string
	City               string
	State              string
	WeightGrams        int
	CODAmountPaise     int64
}

// Shipment is the booked parcel with its tracking number.
type Shipment struct {
	WaybillNumber string
	Status        string
}

// BookShipment registers a parcel pickup and returns the assigned waybill.
func (c *Client) BookShipment(ctx context.Context, req BookShipmentRequest) (*Shipment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delhivery client not configured")
	}
	if strings.TrimSpace(req.OrderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	if strings.TrimSpace(req.DestinationPincode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination pincode is required")
	}

	paymentMode := "Prepaid"
	codAmount := int64(0)
	if req.CODAmountPaise > 0 {
		paymentMode = "COD"
		codAmount = req.CODAmountPaise / 100
	}

	payload := map[string]any{
		"shipments": []map[string]any{{
			"order":         req.OrderNumber,
			"name":          req.ConsigneeName,
			"phone":         req.ConsigneePhone,
			"add":           req.AddressLine,
			"city":          req.City,
			"state":         req.State,
			"pin":           req.DestinationPincode,
			"payment_mode":  paymentMode,
			"cod_amount":    codAmount,
			"weight":        req.WeightGrams,
			"seller_name":   req.SellerName,
			"return_pin":    req.OriginPincode,
			"country":       "India",
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal shipment request")
	}

	endpoint := fmt.Sprintf("%s/api/cmu/create.json", strings.TrimRight(c.baseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build shipment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute shipment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "shipment request failed")
	}

	var apiResp struct {
		Packages []struct {
			Waybill string `json:"waybill"`
			Status  string `json:"status"`
		} `json:"packages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shipment response")
	}
	if len(apiResp.Packages) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipment response has no packages")
	}

	return &Shipment{
		WaybillNumber: apiResp.Packages[0].Waybill,
		Status:        apiResp.Packages[0].Status,
	}, nil
}
