// Package extract calls the third-party structuring service that turns
// decision section text into structured fields. The pipeline consumes it
// through the Service interface; transport failures and malformed responses
// are distinct error classes so callers can retry one and not the other.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lexpipe/internal/config"
)

var (
	// ErrTransport marks a failed HTTP exchange with the service.
	ErrTransport = errors.New("extraction transport failure")
	// ErrMalformed marks a response that arrived but could not be decoded
	// into the expected structure.
	ErrMalformed = errors.New("extraction response malformed")
)

// Party is one litigant with its procedural role.
type Party struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// DecisionDetails carries the judgment metadata the service recovers from
// the decision text.
type DecisionDetails struct {
	Rapporteur   string `json:"rapporteur,omitempty"`
	Organ        string `json:"organ,omitempty"`
	JudgmentDate string `json:"judgmentDate,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
}

// Result is the structured output for one document.
type Result struct {
	Parties     []Party         `json:"parties"`
	Keywords    []string        `json:"keywords"`
	Legislation []string        `json:"legislation"`
	Doctrine    []string        `json:"doctrine"`
	Details     DecisionDetails `json:"decisionDetails"`
}

// Service extracts structured fields from named decision sections.
type Service interface {
	ExtractStructure(ctx context.Context, sections map[string]string) (*Result, error)
}

// HTTPService is the production Service client.
type HTTPService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type extractionRequest struct {
	Model    string            `json:"model"`
	Sections map[string]string `json:"sections"`
}

// NewHTTPService builds a client from configuration.
func NewHTTPService(cfg *config.Config) *HTTPService {
	timeout := time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPService{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.Extraction.BaseURL, "/"),
		apiKey:  cfg.Extraction.APIKey,
		model:   cfg.Extraction.Model,
	}
}

// ExtractStructure posts the section text and decodes the structured reply.
func (s *HTTPService) ExtractStructure(ctx context.Context, sections map[string]string) (*Result, error) {
	payload, err := json.Marshal(extractionRequest{Model: s.model, Sections: sections})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrMalformed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned %d", ErrTransport, resp.StatusCode)
	}

	var result Result
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &result, nil
}
