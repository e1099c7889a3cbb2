// Package plantnet is a minimal client for the Pl@ntNet identification API.
package plantnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public v2 API root.
const DefaultBaseURL = "https://my.plantnet.org/api/v2"

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 1 << 20

// DefaultOrgans are sent with every image.
var DefaultOrgans = []string{"leaf", "flower", "fruit", "bark"}

// Match is the best identification returned by the API.
type Match struct {
	Score          float64
	ScientificName string
	CommonNames    []string
}

// Client calls the identify endpoint.
type Client struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	HTTP    *http.Client // optional; built from Timeout when nil
}

// New creates a client with the default base URL.
func New(apiKey string, timeout time.Duration) *Client {
	return &Client{APIKey: apiKey, BaseURL: DefaultBaseURL, Timeout: timeout}
}

// Identify posts the encoded images and returns the top-ranked match.
func (c *Client) Identify(ctx context.Context, images []string) (Match, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return Match{}, fmt.Errorf("missing PlantNet API key")
	}

	raw, err := json.Marshal(struct {
		Images []string `json:"images"`
		Organs []string `json:"organs"`
	}{images, DefaultOrgans})
	if err != nil {
		return Match{}, fmt.Errorf("marshal request: %w", err)
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	url := strings.TrimRight(base, "/") + "/identify/all"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return Match{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("plantnet request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return Match{}, fmt.Errorf("read response: %w", err)
	}
	if len(body) > MaxResponseBytes {
		return Match{}, fmt.Errorf("plantnet response exceeds %d bytes", MaxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Match{}, fmt.Errorf("plantnet http %d", resp.StatusCode)
	}
	return parseMatch(body)
}

func parseMatch(body []byte) (Match, error) {
	if !gjson.ValidBytes(body) {
		return Match{}, fmt.Errorf("plantnet response is not valid JSON")
	}
	best := gjson.GetBytes(body, "results.0")
	if !best.Exists() {
		return Match{}, fmt.Errorf("plantnet response has no results")
	}
	score := best.Get("score")
	if score.Type != gjson.Number {
		return Match{}, fmt.Errorf("plantnet result missing score")
	}

	m := Match{
		Score:          score.Float(),
		ScientificName: best.Get("species.scientificNameWithoutAuthor").String(),
	}
	for _, n := range best.Get("species.commonNames").Array() {
		m.CommonNames = append(m.CommonNames, n.String())
	}
	return m, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: c.Timeout}
}
