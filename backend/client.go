package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"agentdesk/config"
)

const (
	pathVerify = "/auth/verify"
	pathLogin  = "/auth/login"
	pathAgents = "/api/agents"
	pathChat   = "/api/chat"
	pathUpload = "/api/upload"

	// cap on error bodies read for a detail message
	maxErrorBody = 64 << 10
)

// Client speaks the agent proxy's JSON contract. It holds no session state:
// callers pass the bearer token on every authenticated call.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a client for baseURL. A zero timeout leaves requests
// bounded only by the transport.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("proxy url is empty")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", baseURL)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Verify checks a persisted token and returns the user it belongs to.
func (c *Client) Verify(ctx context.Context, token string) (User, error) {
	var out verifyResponse
	if err := c.postJSON(ctx, "verify", pathVerify, "", verifyRequest{Token: token}, &out); err != nil {
		return User{}, err
	}
	return out.User, nil
}

// Login exchanges an identity-provider artifact for a session.
func (c *Client) Login(ctx context.Context, artifact Artifact) (LoginResult, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, pathLogin, "", artifact)
	if err != nil {
		return LoginResult{}, &TransportError{Op: "login", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LoginResult{}, &TransportError{Op: "login", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LoginResult{}, &LoginError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var out LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return LoginResult{}, &TransportError{Op: "login", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if out.SessionToken == "" {
		return LoginResult{}, &TransportError{Op: "login", Err: fmt.Errorf("response carried no session_token")}
	}
	return out, nil
}

// ListAgents returns the agents the token's user may talk to.
func (c *Client) ListAgents(ctx context.Context, token string) ([]Agent, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, pathAgents, token, nil)
	if err != nil {
		return nil, &TransportError{Op: "list agents", Err: err}
	}

	var agents []Agent
	if err := c.do(req, "list agents", &agents); err != nil {
		return nil, err
	}
	if agents == nil {
		agents = []Agent{}
	}
	return agents, nil
}

// Chat sends one message to an agent and returns its reply.
func (c *Client) Chat(ctx context.Context, token, agentID, message string) (string, error) {
	var out agentResponse
	if err := c.postJSON(ctx, "chat", pathChat, token, chatRequest{Message: message, AgentID: agentID}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Upload posts a file as multipart form data and returns the agent's reply.
func (c *Client) Upload(ctx context.Context, token string, upload UploadRequest) (string, error) {
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathUpload, body)
	if err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	var out agentResponse
	if err := c.do(req, "upload", &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *Client) postJSON(ctx context.Context, op, path, token string, in, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, token, in)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return c.do(req, op, out)
}

func (c *Client) newJSONRequest(ctx context.Context, method, path, token string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out. 401 maps to
// ErrUnauthorized, other non-2xx to *StatusError.
func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logRequest(op, 0, start, err)
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	logRequest(op, resp.StatusCode, start, nil)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body errorResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Detail
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(upload UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(upload.FileName)))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(upload.Content); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.WriteField("agentId", upload.AgentID); err != nil {
		return nil, "", fmt.Errorf("failed to write agentId: %w", err)
	}
	if err := mw.WriteField("endpoint", upload.Endpoint); err != nil {
		return nil, "", fmt.Errorf("failed to write endpoint: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

func logRequest(op string, status int, start time.Time, err error) {
	if config.DebugLog == nil {
		return
	}
	event := config.DebugLog.Info()
	if err != nil || status >= 400 {
		event = config.DebugLog.Warn()
	}
	event.Str("op", op).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		AnErr("error", err).
		Msg("proxy request")
}
