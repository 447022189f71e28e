package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pavelanni/recall/internal/model"
	"github.com/pavelanni/recall/internal/session"
)

// DefaultTimeout bounds a single API request when no HTTP client is supplied.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// Client talks to the recall API. It implements both session.Source and
// session.Grader, so a store over a Client runs in networked mode.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ session.Source = (*Client)(nil)
	_ session.Grader = (*Client)(nil)
)

// NewClient returns a client for the API rooted at baseURL, for example
// http://localhost:8080/api.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListQuestions fetches a document's questions with their grading state.
func (c *Client) ListQuestions(ctx context.Context, documentID string) ([]session.Question, error) {
	const op = "list questions"
	var resp model.QuestionsResponse
	if err := c.do(ctx, op, http.MethodGet, "/documents/"+url.PathEscape(documentID)+"/questions/", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Questions == nil {
		return nil, &FormatError{Op: op, Err: errors.New("response without questions")}
	}
	qs, err := normalizeQuestions(resp.Questions)
	if err != nil {
		return nil, &FormatError{Op: op, Err: err}
	}
	return qs, nil
}

// SubmitForGrading posts an answer and returns the mark the server assigned.
func (c *Client) SubmitForGrading(ctx context.Context, questionID, answer string) (session.Grade, error) {
	const op = "submit answer"
	var resp model.SubmitAnswerResponse
	body := model.SubmitAnswerRequest{Answer: answer}
	if err := c.do(ctx, op, http.MethodPost, "/questions/"+url.PathEscape(questionID)+"/answer/", body, &resp); err != nil {
		return session.Grade{}, err
	}
	g, err := normalizeGrade(resp)
	if err != nil {
		return session.Grade{}, &FormatError{Op: op, Err: err}
	}
	return g, nil
}

// ListDocuments returns the documents available on the server.
func (c *Client) ListDocuments(ctx context.Context) ([]model.DocumentListItem, error) {
	var resp model.DocumentsResponse
	if err := c.do(ctx, "list documents", http.MethodGet, "/documents/", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &FetchError{Op: op, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{Op: op, URL: endpoint, StatusCode: resp.StatusCode, Err: errorMessage(resp)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FormatError{Op: op, Err: err}
	}
	return nil
}

// errorMessage extracts the API's {"error": "..."} message, falling back to
// the status text.
func errorMessage(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e model.ErrorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return errors.New(e.Error)
	}
	return errors.New(http.StatusText(resp.StatusCode))
}
