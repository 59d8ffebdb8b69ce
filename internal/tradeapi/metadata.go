// internal/tradeapi/metadata.go
package tradeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"path/filepath"

	"go.uber.org/zap"
)

// MetadataForm is the token description uploaded before a create call.
type MetadataForm struct {
	Name        string
	Symbol      string
	Description string
	Twitter     string
	Telegram    string
	Website     string
	ShowName    bool
	ImageName   string
	Image       []byte
}

type metadataResponse struct {
	Metadata struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"metadata"`
	MetadataURI string `json:"metadataUri"`
}

// UploadMetadata stores the token image and description and returns the
// metadata reference to pass into a create request.
func (c *Client) UploadMetadata(ctx context.Context, form MetadataForm) (TokenMetadata, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":        form.Name,
		"symbol":      form.Symbol,
		"description": form.Description,
		"twitter":     form.Twitter,
		"telegram":    form.Telegram,
		"website":     form.Website,
		"showName":    fmt.Sprintf("%t", form.ShowName),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return TokenMetadata{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if len(form.Image) > 0 {
		part, err := w.CreateFormFile("file", filepath.Base(form.ImageName))
		if err != nil {
			return TokenMetadata{}, fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(form.Image); err != nil {
			return TokenMetadata{}, fmt.Errorf("write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return TokenMetadata{}, fmt.Errorf("close multipart: %w", err)
	}

	body := buf.Bytes()
	data, err := c.retry(ctx, func() ([]byte, error) {
		out, err := c.post(ctx, c.config.MetadataURL, w.FormDataContentType(), body)
		c.record(err)
		return out, err
	})
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("upload metadata: %w", err)
	}

	var resp metadataResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return TokenMetadata{}, fmt.Errorf("decode metadata response: %w", err)
	}
	if resp.MetadataURI == "" {
		return TokenMetadata{}, fmt.Errorf("decode metadata response: %w", ErrEmptyResponse)
	}

	meta := TokenMetadata{Name: resp.Metadata.Name, Symbol: resp.Metadata.Symbol, URI: resp.MetadataURI}
	if meta.Name == "" {
		meta.Name = form.Name
	}
	if meta.Symbol == "" {
		meta.Symbol = form.Symbol
	}
	c.logger.Info("Token metadata uploaded", zap.String("uri", meta.URI))
	return meta, nil
}
