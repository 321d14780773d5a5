// Package template implements template-driven structured extraction: each
// template pairs a document type with a prompt describing the fields to pull
// out, and the model is forced into JSON output mode.
package template

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/NaserJamal/simple-ocr/internal/vlm"
)

// Template describes one document type the parser knows how to extract.
// The prompt can be given inline or loaded from a file next to the
// registry.
type Template struct {
	Name       string `yaml:"name" json:"name"`
	Prompt     string `yaml:"prompt,omitempty" json:"-"`
	PromptFile string `yaml:"prompt_file,omitempty" json:"-"`
}

// Registry holds the available templates keyed by a short identifier
type Registry struct {
	templates map[string]Template
}

const invoicePrompt = `You are a document data extraction system. The image is an invoice.
Extract the following fields and return them as a single JSON object:

- invoice_number: the invoice identifier
- invoice_date: the issue date as written on the document
- due_date: the payment due date, or null if absent
- vendor_name: the name of the issuing company
- customer_name: the billed party
- line_items: an array of objects with description, quantity, unit_price and amount
- subtotal: the pre-tax total
- tax: the tax amount, or null if absent
- total: the final amount due
- currency: the currency code or symbol used

Use null for any field that is not present. Do not invent values.
Return only the JSON object, no commentary.`

const receiptPrompt = `You are a document data extraction system. The image is a retail receipt.
Extract the following fields and return them as a single JSON object:

- merchant_name: the store name
- date: the transaction date
- time: the transaction time, or null if absent
- items: an array of objects with description, quantity and price
- total: the final amount paid
- payment_method: how the purchase was paid, or null if not shown

Use null for any field that is not present. Do not invent values.
Return only the JSON object, no commentary.`

// NewRegistry returns the builtin templates
func NewRegistry() *Registry {
	return &Registry{
		templates: map[string]Template{
			"invoice": {Name: "Invoice", Prompt: invoicePrompt},
			"receipt": {Name: "Retail Receipt", Prompt: receiptPrompt},
		},
	}
}

// LoadRegistry reads templates from a YAML file. File-based prompt
// references are resolved relative to the registry's directory. The file
// fully replaces the builtin set.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template registry: %w", err)
	}

	var templates map[string]Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse template registry: %w", err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("template registry %s defines no templates", path)
	}

	baseDir := filepath.Dir(path)
	for key, tmpl := range templates {
		if tmpl.Name == "" {
			return nil, fmt.Errorf("template %q has no name", key)
		}
		if tmpl.Prompt == "" && tmpl.PromptFile == "" {
			return nil, fmt.Errorf("template %q has neither prompt nor prompt_file", key)
		}
		if tmpl.Prompt == "" {
			promptPath := tmpl.PromptFile
			if !filepath.IsAbs(promptPath) {
				promptPath = filepath.Join(baseDir, promptPath)
			}
			prompt, err := os.ReadFile(promptPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read prompt for template %q: %w", key, err)
			}
			tmpl.Prompt = string(prompt)
			templates[key] = tmpl
		}
	}

	return &Registry{templates: templates}, nil
}

// Get returns the template for key
func (r *Registry) Get(key string) (Template, error) {
	tmpl, ok := r.templates[key]
	if !ok {
		return Template{}, fmt.Errorf("template %q not found (available: %s)",
			key, strings.Join(r.Keys(), ", "))
	}
	return tmpl, nil
}

// Keys returns the template keys in sorted order
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.templates))
	for key := range r.templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// List returns key/name pairs for display, sorted by key
func (r *Registry) List() []struct{ Key, Name string } {
	var out []struct{ Key, Name string }
	for _, key := range r.Keys() {
		out = append(out, struct{ Key, Name string }{key, r.templates[key].Name})
	}
	return out
}

// Parser runs template extraction against the vision model
type Parser struct {
	client   *vlm.Client
	registry *Registry
}

// NewParser creates a parser over the given registry. A nil registry gets
// the builtin templates.
func NewParser(client *vlm.Client, registry *Registry) *Parser {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Parser{client: client, registry: registry}
}

// Registry exposes the parser's template set
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Extract sends the prepared page image through the template's prompt and
// returns the structured fields. Extraction runs at temperature zero so
// repeated runs over the same document agree.
func (p *Parser) Extract(ctx context.Context, imageB64 string, key string) (map[string]any, error) {
	tmpl, err := p.registry.Get(key)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("template", key).Str("name", tmpl.Name).Msg("Running template extraction")

	temperature := 0.0
	reply, err := p.client.Complete(ctx, vlm.Request{
		User:        tmpl.Prompt,
		Image:       imageB64,
		JSONObject:  true,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("template extraction failed: %w", err)
	}

	payload, err := vlm.ExtractJSONObject(reply)
	if err != nil {
		return nil, fmt.Errorf("model did not return a JSON object: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse extracted fields: %w", err)
	}

	return fields, nil
}
