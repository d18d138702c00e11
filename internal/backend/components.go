package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"agentroom/internal/persona"
	"agentroom/internal/transcript"
)

// ComponentInfo is one catalog entry. The catalog may list bare names.
type ComponentInfo struct {
	Name       string `json:"name"`
	Author     string `json:"author,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

func (ci *ComponentInfo) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*ci = ComponentInfo{Name: name}
		return nil
	}
	type plain ComponentInfo
	var parsed plain
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*ci = ComponentInfo(parsed)
	return nil
}

// Bundle is a saved roster with optional history.
type Bundle struct {
	Name    string               `json:"name,omitempty"`
	Agents  []persona.Persona    `json:"agents"`
	History []transcript.Message `json:"history,omitempty"`
}

func (c *Client) ListComponents(ctx context.Context) ([]ComponentInfo, error) {
	var out []ComponentInfo
	if err := c.getJSON(ctx, "/api/list_components", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetComponent fetches a bundle by name. Servers that only expose the path
// form answer 404 to the query form, so that is tried second.
func (c *Client) GetComponent(ctx context.Context, name string) (Bundle, error) {
	var out Bundle
	err := c.getJSON(ctx, "/api/get_component?name="+url.QueryEscape(name), &out)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		out = Bundle{}
		err = c.getJSON(ctx, "/api/component/"+escapePath(name), &out)
	}
	if err != nil {
		return Bundle{}, err
	}
	if out.Name == "" {
		out.Name = name
	}
	return out, nil
}

// UploadComponent stores an inline bundle under name.
func (c *Client) UploadComponent(ctx context.Context, name string, bundle Bundle) (Ack, error) {
	bundle.Name = name
	var ack Ack
	if err := c.postJSON(ctx, "/api/upload_component", bundle, &ack); err != nil {
		return Ack{}, err
	}
	return ack.settle("upload_component", name)
}

// UploadComponentFile sends a bundle file as multipart form data.
func (c *Client) UploadComponentFile(ctx context.Context, name, filename string, content io.Reader) (Ack, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("name", name); err != nil {
		return Ack{}, err
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return Ack{}, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return Ack{}, fmt.Errorf("copy %s: %w", filename, err)
	}
	if err := form.Close(); err != nil {
		return Ack{}, err
	}
	const path = "/api/upload_component"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return Ack{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	var ack Ack
	if err := c.do(req, path, &ack); err != nil {
		return Ack{}, err
	}
	return ack.settle("upload_component", name)
}

// SaveComponent asks the backend to persist its current roster and history
// under name.
func (c *Client) SaveComponent(ctx context.Context, name string) (Ack, error) {
	var ack Ack
	if err := c.postJSON(ctx, "/api/save_component", map[string]string{"name": name}, &ack); err != nil {
		return Ack{}, err
	}
	return ack.settle("save_component", name)
}

func (c *Client) DeleteComponent(ctx context.Context, name string) error {
	return c.postJSON(ctx, "/api/delete_component", map[string]string{"name": name}, nil)
}

// settle turns an {"ok":false,"error":...} reply into an error and fills
// in the requested name when the backend omits it.
func (a Ack) settle(op, name string) (Ack, error) {
	if !a.OK && strings.TrimSpace(a.Error) != "" {
		return a, fmt.Errorf("%s %s: %s", op, name, a.Error)
	}
	if a.Name == "" {
		a.Name = name
	}
	return a, nil
}
