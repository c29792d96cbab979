package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/guestlist-service/internal/config"
)

// Uploader pushes an image to a public host and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// UploadThingClient implements the UploadThing two-step flow: register
// the file to obtain a presigned form post plus the final public URL,
// then post the bytes to the presigned endpoint.
type UploadThingClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewUploadThingClient builds the client from configuration.
func NewUploadThingClient(cfg config.UploadConfig) *UploadThingClient {
	return &UploadThingClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether the provider is configured.
func (c *UploadThingClient) Enabled() bool {
	return c.token != ""
}

type uploadSlot struct {
	URL     string            `json:"url"`
	Fields  map[string]string `json:"fields"`
	FileURL string            `json:"fileUrl"`
}

// Upload stores the PNG and returns its public URL.
func (c *UploadThingClient) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if !c.Enabled() {
		return "", &ProviderError{Provider: "uploadthing", StatusCode: 500, Body: "missing UPLOADTHING_TOKEN"}
	}

	slot, err := c.prepare(ctx, filename, len(data))
	if err != nil {
		return "", err
	}
	if err := c.postFile(ctx, slot, data, filename); err != nil {
		return "", err
	}
	if slot.FileURL == "" {
		return "", &ProviderError{Provider: "uploadthing", StatusCode: 502, Body: "no public url returned"}
	}
	return slot.FileURL, nil
}

func (c *UploadThingClient) prepare(ctx context.Context, filename string, size int) (*uploadSlot, error) {
	payload := map[string]any{
		"files": []map[string]any{
			{"name": filename, "size": size, "type": "image/png"},
		},
		"contentDisposition": "inline",
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v6/uploadFiles", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-uploadthing-api-key", c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "uploadthing", StatusCode: 502, Body: err.Error()}
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &ProviderError{Provider: "uploadthing", StatusCode: res.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Data []uploadSlot `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Data) == 0 {
		return nil, &ProviderError{Provider: "uploadthing", StatusCode: 502, Body: string(body)}
	}
	return &parsed.Data[0], nil
}

func (c *UploadThingClient) postFile(ctx context.Context, slot *uploadSlot, data []byte, filename string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range slot.Fields {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slot.URL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Provider: "uploadthing", StatusCode: 502, Body: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return &ProviderError{Provider: "uploadthing", StatusCode: res.StatusCode, Body: string(body)}
	}
	return nil
}
