// Package backend talks to the marketplace REST collaborator: content
// uploads, listing re-indexing, contract configuration, and auctions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nftmarket-go/internal/flow"
)

// Client is a thin typed wrapper over the backend's REST endpoints.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// New builds a client against the backend base URL.
func New(base string, log zerolog.Logger) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

// UploadResult is the body returned by the content upload endpoint.
type UploadResult struct {
	OK          bool            `json:"ok"`
	MetadataCID string          `json:"metadata_cid"`
	Metadata    json.RawMessage `json:"metadata"`
}

// Upload pushes the image payload plus listing metadata to the
// content-addressed storage backend and returns the metadata content
// identifier the mint transaction will reference.
func (c *Client) Upload(ctx context.Context, filename, name, description string, payload io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrUploadFailed, err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrUploadFailed, err)
	}
	_ = writer.WriteField("name", name)
	_ = writer.WriteField("description", description)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/nft/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", flow.ErrUploadFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrUploadFailed, err)
	}
	if !result.OK {
		return nil, fmt.Errorf("%w: backend reported failure", flow.ErrUploadFailed)
	}
	if result.MetadataCID == "" {
		return nil, fmt.Errorf("%w: response lacks metadata_cid", flow.ErrUploadFailed)
	}
	return &result, nil
}

// Reindex asks the backend to refresh its listing cache. Best-effort: a
// failure delays the new listing's visibility until the next fetch, nothing
// more, so callers treat the error as advisory.
func (c *Client) Reindex(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/reindex", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reindex: status %d", resp.StatusCode)
	}
	return nil
}

// ContractConfig is the backend-published contract address override.
type ContractConfig struct {
	MarketplaceAddress string `json:"marketplaceAddress"`
	NFTContractAddress string `json:"nftContractAddress"`
}

// ContractConfig fetches contract addresses published by the backend.
func (c *Client) ContractConfig(ctx context.Context) (*ContractConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/config", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config: status %d", resp.StatusCode)
	}
	var cfg ContractConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
