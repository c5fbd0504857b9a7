// Package labeler suggests taxonomy labels for an article from its abstract
// using a local Ollama model.
package labeler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"

	"github.com/matsen/sysreview/internal/taxonomy"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultModel is the default generation model.
	DefaultModel = "llama3.2"

	// DefaultTimeout is the timeout for generation requests.
	DefaultTimeout = 2 * time.Minute

	// DefaultRate is the default request rate per second.
	DefaultRate = 2.0

	apiPathTags     = "/api/tags"
	apiPathGenerate = "/api/generate"
)

// Suggester proposes labels for an abstract.
type Suggester interface {
	Suggest(ctx context.Context, abstract string) ([]string, error)
	ModelName() string
}

// Ollama suggests labels with the Ollama generate API.
type Ollama struct {
	baseURL string
	model   string
	tax     *taxonomy.Taxonomy
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures an Ollama labeler.
type Option func(*Ollama)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) Option {
	return func(o *Ollama) {
		o.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the generation model.
func WithModel(model string) Option {
	return func(o *Ollama) {
		o.model = model
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Ollama) {
		o.client.Timeout = timeout
	}
}

// WithRate sets the maximum requests per second.
func WithRate(perSecond float64) Option {
	return func(o *Ollama) {
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithTaxonomy sets the labels the model may choose from.
func WithTaxonomy(tax *taxonomy.Taxonomy) Option {
	return func(o *Ollama) {
		o.tax = tax
	}
}

// New creates an Ollama labeler.
func New(opts ...Option) *Ollama {
	o := &Ollama{
		baseURL: DefaultOllamaURL,
		model:   DefaultModel,
		tax:     taxonomy.Default(),
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRate), 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ModelName returns the generation model.
func (o *Ollama) ModelName() string {
	return o.model
}

// Suggest asks the model to label an abstract. Labels outside the taxonomy
// are dropped. A response that is not a JSON label list yields no labels.
func (o *Ollama) Suggest(ctx context.Context, abstract string) ([]string, error) {
	if strings.TrimSpace(abstract) == "" {
		return nil, nil
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: BuildPrompt(o.tax, abstract),
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+apiPathGenerate, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: formatErrorBody(resp.Body)}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return ParseLabels(result.Response, o.tax), nil
}

// IsAvailable checks that Ollama is running and has the model.
func (o *Ollama) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+apiPathTags, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == o.model || strings.TrimSuffix(m.Name, ":latest") == o.model {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (run: ollama pull %s)", ErrModelNotFound, o.model, o.model)
}

// BuildPrompt asks for a JSON object {"labels": [...]} chosen from the taxonomy.
func BuildPrompt(tax *taxonomy.Taxonomy, abstract string) string {
	var b strings.Builder
	b.WriteString("You are screening articles for a systematic literature review.\n")
	b.WriteString("Choose every label that applies to the abstract below, using only these labels:\n")
	for _, l := range tax.All() {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("For each pair of a label and its \"No ...\" form, choose at most one.\n")
	b.WriteString(`Answer with a JSON object of the form {"labels": ["..."]} and nothing else.`)
	b.WriteString("\n\nAbstract:\n")
	b.WriteString(strings.TrimSpace(abstract))
	return b.String()
}

// ParseLabels extracts labels from a model response. It accepts a JSON
// array or an object with a "labels" array. Unknown labels and repeats are
// dropped; anything unparseable yields nil.
func ParseLabels(content string, tax *taxonomy.Taxonomy) []string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []string
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		var obj struct {
			Labels []string `json:"labels"`
		}
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			return nil
		}
		raw = obj.Labels
	}

	known := make(map[string]bool)
	for _, l := range tax.All() {
		known[l] = true
	}

	var labels []string
	seen := make(map[string]bool)
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if known[l] && !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	return labels
}

// AbstractHash fingerprints the abstract text for the suggestion cache.
func AbstractHash(abstract string) string {
	sum := blake2b.Sum256([]byte(abstract))
	return fmt.Sprintf("%x", sum)
}

// formatErrorBody reads and formats the response body for error messages.
func formatErrorBody(body io.Reader) string {
	respBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return strings.TrimSpace(string(respBody))
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
