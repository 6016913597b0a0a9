package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type httpConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
}

// httpProvider posts the raster to a hosted recognition endpoint. Useful for
// deployments without a local tesseract install.
type httpProvider struct {
	endpoint string
	apiKey   string
}

type httpRecognizeRequest struct {
	Image string `json:"image"`
}

type httpRecognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (p *httpProvider) Name() string {
	return "http"
}

func (p *httpProvider) Recognize(ctx context.Context, png []byte) (*Result, error) {
	reqBody := httpRecognizeRequest{
		Image: base64.StdEncoding.EncodeToString(png),
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ocr request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out httpRecognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &Result{Text: out.Text, Confidence: out.Confidence}, nil
}

func createHTTPProvider(args interface{}) (Provider, error) {
	cfg := &httpConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("ocr http endpoint is required")
	}
	return &httpProvider{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		apiKey:   strings.TrimSpace(cfg.APIKey),
	}, nil
}

func init() {
	Register("http", createHTTPProvider)
}
