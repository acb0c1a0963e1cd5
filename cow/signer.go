// cow/signer.go
package cow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Signer produces the cryptographic material orders and cancellations need.
// The signing scheme itself lives outside this process; the bot only carries
// opaque signatures.
type Signer interface {
	SignOrder(ctx context.Context, order OrderRequest) (string, error)
	SignCancellation(ctx context.Context, uid string) (string, error)
}

// HTTPSigner delegates signing to a wallet sidecar over HTTP. The sidecar
// holds the private key; this process never sees it.
type HTTPSigner struct {
	url        string
	httpClient *http.Client
}

func NewHTTPSigner(url string) *HTTPSigner {
	return &HTTPSigner{
		url: strings.TrimRight(url, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type signResponse struct {
	Signature string `json:"signature"`
}

func (s *HTTPSigner) SignOrder(ctx context.Context, order OrderRequest) (string, error) {
	return s.post(ctx, "/sign/order", order)
}

func (s *HTTPSigner) SignCancellation(ctx context.Context, uid string) (string, error) {
	return s.post(ctx, "/sign/cancel", map[string]string{"orderUid": uid})
}

func (s *HTTPSigner) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var sr signResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if sr.Signature == "" {
		return "", fmt.Errorf("signer returned empty signature")
	}
	return sr.Signature, nil
}
