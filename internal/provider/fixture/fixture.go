// Package fixture implements a provider backed by a YAML document, for
// offline use and tests.
//
// Example:
//
//	collections:
//	  - resource: ec2
//	    collection: instances
//	    identifiers: [id]
//	    attributes: [instance_type, state, tags]
//	    items:
//	      - id: i-1
//	        instance_type: t3.micro
//	        state: {Name: running}
//	        tags: [{Key: Name, Value: web}]
//	    namespaces:
//	      eu-west-1:
//	        - id: i-9
//	          instance_type: m5.large
package fixture

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lebinh/aq/internal/ir"
	"github.com/lebinh/aq/internal/provider"
)

// Document is the YAML layout of a fixture file.
type Document struct {
	Collections []CollectionSpec `yaml:"collections"`
}

// CollectionSpec defines one collection and its items.
type CollectionSpec struct {
	Resource    string   `yaml:"resource"`
	Collection  string   `yaml:"collection"`
	Identifiers []string `yaml:"identifiers"`
	Attributes  []string `yaml:"attributes"`

	// Items are returned for every namespace without an entry in Namespaces.
	Items []map[string]any `yaml:"items"`

	// Namespaces overrides Items per namespace.
	Namespaces map[string][]map[string]any `yaml:"namespaces"`
}

// Provider serves collections from a fixture document.
type Provider struct {
	collections map[provider.Collection]CollectionSpec
}

// Load reads a fixture file.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return p, nil
}

// Parse builds a provider from YAML.
func Parse(data []byte) (*Provider, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return New(doc)
}

// New builds a provider from a document.
func New(doc Document) (*Provider, error) {
	p := &Provider{collections: make(map[provider.Collection]CollectionSpec, len(doc.Collections))}
	for i, spec := range doc.Collections {
		if spec.Resource == "" || spec.Collection == "" {
			return nil, fmt.Errorf("collections[%d]: resource and collection are required", i)
		}
		if len(spec.Identifiers)+len(spec.Attributes) == 0 {
			return nil, fmt.Errorf("collections[%d] %s_%s: no columns", i, spec.Resource, spec.Collection)
		}
		key := provider.Collection{Resource: spec.Resource, Collection: spec.Collection}
		if _, dup := p.collections[key]; dup {
			return nil, fmt.Errorf("collections[%d]: duplicate collection %s", i, key.TableName())
		}
		p.collections[key] = spec
	}
	return p, nil
}

func (p *Provider) lookup(resource, collection string) (CollectionSpec, error) {
	spec, ok := p.collections[provider.Collection{Resource: resource, Collection: collection}]
	if !ok {
		return CollectionSpec{}, fmt.Errorf("%w <%s> of resource <%s>", provider.ErrUnknownCollection, collection, resource)
	}
	return spec, nil
}

// Describe implements provider.Provider.
func (p *Provider) Describe(ctx context.Context, namespace, resource, collection string) (ir.CollectionSchema, error) {
	spec, err := p.lookup(resource, collection)
	if err != nil {
		return ir.CollectionSchema{}, err
	}
	return ir.CollectionSchema{
		Identifiers: append([]string(nil), spec.Identifiers...),
		Attributes:  append([]string(nil), spec.Attributes...),
	}, nil
}

// List implements provider.Provider.
func (p *Provider) List(ctx context.Context, namespace, resource, collection string) ([]ir.Item, error) {
	spec, err := p.lookup(resource, collection)
	if err != nil {
		return nil, err
	}

	raw := spec.Items
	if override, ok := spec.Namespaces[namespace]; ok {
		raw = override
	}

	items := make([]ir.Item, len(raw))
	for i, fields := range raw {
		record := make(ir.Record, len(fields))
		for k, v := range fields {
			record[k] = v
		}
		items[i] = record
	}
	return items, nil
}

// Collections implements provider.Catalog.
func (p *Provider) Collections(ctx context.Context) ([]provider.Collection, error) {
	out := make([]provider.Collection, 0, len(p.collections))
	for key := range p.collections {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TableName() < out[j].TableName()
	})
	return out, nil
}
