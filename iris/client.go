// Package iris integrates with the IRIS DFIR platform: case creation, IOC
// and note ingestion over its JSON API.
package iris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// IOC type IDs in IRIS (standard types)
const (
	IOCTypeIP     = 1
	IOCTypeDomain = 2
	IOCTypeURL    = 3
	IOCTypeMD5    = 4
	IOCTypeSHA1   = 5
	IOCTypeSHA256 = 6
	IOCTypeEmail  = 7
	IOCTypeFile   = 8
	IOCTypePort   = 10
)

// TLP (Traffic Light Protocol) levels
const (
	TLPWhite = 1
	TLPGreen = 2
	TLPAmber = 3
	TLPRed   = 4
)

// Case classifications
const (
	ClassificationMalware         = 1
	ClassificationPhishing        = 2
	ClassificationIntrusion       = 3
	ClassificationDenialOfService = 4
	ClassificationDataBreach      = 5
	ClassificationInsiderThreat   = 6
	ClassificationOther           = 7
)

// Customer is an IRIS tenant
type Customer struct {
	CustomerID   int    `json:"customer_id"`
	CustomerName string `json:"customer_name"`
}

// Case is an IRIS case as returned by the API
type Case struct {
	CaseID           int    `json:"case_id"`
	CaseName         string `json:"case_name"`
	CaseDescription  string `json:"case_description"`
	CaseCustomer     int    `json:"case_customer"`
	CaseSOCID        string `json:"case_soc_id"`
	CaseOpenDate     string `json:"case_open_date"`
	ClassificationID int    `json:"classification_id"`
	StateID          int    `json:"state_id"`
}

// CaseCreate is the payload for creating a case
type CaseCreate struct {
	CaseName         string `json:"case_name"`
	CaseDescription  string `json:"case_description"`
	CaseCustomer     int    `json:"case_customer"`
	CaseSOCID        string `json:"case_soc_id"`
	ClassificationID int    `json:"classification_id,omitempty"`
}

// IOCCreate is the payload for attaching an IOC to a case
type IOCCreate struct {
	IOCValue       string `json:"ioc_value"`
	IOCTypeID      int    `json:"ioc_type_id"`
	IOCDescription string `json:"ioc_description,omitempty"`
	IOCTLPID       int    `json:"ioc_tlp_id,omitempty"`
	IOCTags        string `json:"ioc_tags,omitempty"`
}

// envelope is the IRIS response wrapper
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to an IRIS instance with bearer-token authentication.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient creates an IRIS API client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) request(ctx context.Context, method, endpoint string, payload, dest interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal IRIS request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build IRIS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("IRIS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("IRIS API error: %d - %s", resp.StatusCode, string(errorText))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode IRIS response: %w", err)
	}
	if env.Status == "error" {
		return fmt.Errorf("IRIS API error: %s", env.Message)
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("failed to decode IRIS response data: %w", err)
		}
	}
	return nil
}

// GetCustomers lists the IRIS customers
func (c *Client) GetCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if err := c.request(ctx, http.MethodGet, "/manage/customers/list", nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// CreateCase opens a new case
func (c *Client) CreateCase(ctx context.Context, caseData CaseCreate) (*Case, error) {
	var created Case
	if err := c.request(ctx, http.MethodPost, "/manage/cases/add", caseData, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetCase retrieves case details
func (c *Client) GetCase(ctx context.Context, caseID int) (*Case, error) {
	var found Case
	endpoint := fmt.Sprintf("/manage/cases/%d", caseID)
	if err := c.request(ctx, http.MethodGet, endpoint, nil, &found); err != nil {
		return nil, err
	}
	return &found, nil
}

// AddIOC attaches one IOC to a case
func (c *Client) AddIOC(ctx context.Context, caseID int, ioc IOCCreate) error {
	endpoint := fmt.Sprintf("/case/ioc/add?cid=%d", caseID)
	return c.request(ctx, http.MethodPost, endpoint, ioc, nil)
}

// AddIOCs attaches IOCs sequentially, stopping at the first failure
func (c *Client) AddIOCs(ctx context.Context, caseID int, iocs []IOCCreate) error {
	for _, ioc := range iocs {
		if err := c.AddIOC(ctx, caseID, ioc); err != nil {
			return fmt.Errorf("failed to add IOC %q: %w", ioc.IOCValue, err)
		}
	}
	return nil
}

// AddNote attaches a note to a case
func (c *Client) AddNote(ctx context.Context, caseID int, title, content string) error {
	endpoint := fmt.Sprintf("/case/notes/add?cid=%d", caseID)
	payload := map[string]interface{}{
		"note_title":   title,
		"note_content": content,
		"group_id":     1,
	}
	return c.request(ctx, http.MethodPost, endpoint, payload, nil)
}

// AddTimelineEvent records a timeline event on a case
func (c *Client) AddTimelineEvent(ctx context.Context, caseID int, title string, at time.Time, description string) error {
	endpoint := fmt.Sprintf("/case/timeline/events/add?cid=%d", caseID)
	payload := map[string]interface{}{
		"event_title":       title,
		"event_date":        at.Format(time.RFC3339),
		"event_content":     description,
		"event_category_id": 1,
		"event_in_summary":  true,
		"event_in_graph":    true,
	}
	return c.request(ctx, http.MethodPost, endpoint, payload, nil)
}
