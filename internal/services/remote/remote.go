// Package remote calls the authentication and contact endpoints
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/findosh/contactdesk/internal/models"
)

// ErrInvalidCredentials is returned when the authentication endpoint
// rejects the email/password pair
var ErrInvalidCredentials = errors.New("invalid credentials")

// maxBodySize caps how much of a response is read
const maxBodySize = 1 << 20

// TransportError is returned when an endpoint is unreachable or answers
// with a failure status
type TransportError struct {
	Op      string
	Status  int    // 0 when no response was received
	Message string // "error" field of the response body, if any
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Ack is the acknowledgement of the contact endpoint
type Ack struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    models.SubmissionInput `json:"data"`
}

// LoginResponse is the success body of the authentication endpoint
type LoginResponse struct {
	Success bool        `json:"success"`
	User    models.User `json:"user"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Client talks to the collaborator endpoints over HTTP
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the endpoints under baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP uses the given http client, e.g. one from httptest
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// SubmitContact posts a contact payload. Any 2xx response with a JSON body
// is a success.
func (c *Client) SubmitContact(ctx context.Context, input models.SubmissionInput) (*Ack, error) {
	const op = "submit contact"

	var ack Ack
	if err := c.post(ctx, op, "/apis/contact", input, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Authenticate posts credentials and returns the user on success
func (c *Client) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	const op = "authenticate"

	payload := map[string]string{"email": email, "password": password}

	var resp LoginResponse
	if err := c.post(ctx, op, "/apis/login", payload, &resp); err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.Status == http.StatusUnauthorized {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if resp.User.ID == "" {
		return models.User{}, &TransportError{Op: op, Status: http.StatusOK, Message: "response without user"}
	}
	return resp.User, nil
}

// post sends body as JSON and decodes a 2xx response into out.
// Non-2xx responses become a *TransportError carrying the error message.
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		return &TransportError{Op: op, Status: resp.StatusCode, Message: eb.Error}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: "empty response body"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}
