package backend

import (
	"encoding/json"
)

// User is the identity object returned by /auth/login and /auth/verify.
// Well-known attributes are lifted into fields; everything the proxy sends is
// kept in Attributes.
type User struct {
	Email      string
	Name       string
	Picture    string
	Subject    string
	Attributes map[string]any
}

func (u *User) UnmarshalJSON(data []byte) error {
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	*u = User{Attributes: attrs}
	u.Email = stringAttr(attrs, "email")
	u.Name = stringAttr(attrs, "name")
	u.Picture = stringAttr(attrs, "picture")
	u.Subject = stringAttr(attrs, "sub")
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	attrs := make(map[string]any, len(u.Attributes)+4)
	for k, v := range u.Attributes {
		attrs[k] = v
	}
	setAttr(attrs, "email", u.Email)
	setAttr(attrs, "name", u.Name)
	setAttr(attrs, "picture", u.Picture)
	setAttr(attrs, "sub", u.Subject)
	return json.Marshal(attrs)
}

func stringAttr(attrs map[string]any, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}

func setAttr(attrs map[string]any, key, value string) {
	if value != "" {
		attrs[key] = value
	}
}

// Agent is the wire shape of one entry of GET /api/agents.
type Agent struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Icon        string        `json:"icon"`
	Description string        `json:"description"`
	Mode        string        `json:"mode,omitempty"`
	Features    AgentFeatures `json:"features"`
}

type AgentFeatures struct {
	FileUpload *FileUpload `json:"fileUpload,omitempty"`
}

type FileUpload struct {
	Enabled       bool     `json:"enabled"`
	AcceptedTypes []string `json:"acceptedTypes,omitempty"`
	MaxSize       int64    `json:"maxSize,omitempty"`
	Endpoint      string   `json:"endpoint,omitempty"`
	ButtonLabel   string   `json:"buttonLabel,omitempty"`
}

// Artifact is what the identity provider hands back: either an ID-token
// credential or an authorization code. Exactly one field is set.
type Artifact struct {
	Credential string `json:"credential,omitempty"`
	Code       string `json:"code,omitempty"`
}

type LoginResult struct {
	SessionToken string `json:"session_token"`
	User         User   `json:"user"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	User User `json:"user"`
}

type chatRequest struct {
	Message string `json:"message"`
	AgentID string `json:"agentId"`
}

type agentResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// UploadRequest is one multipart POST /api/upload.
type UploadRequest struct {
	AgentID     string
	Endpoint    string
	FileName    string
	ContentType string
	Content     []byte
}
