package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lebinh/aq/internal/ir"
	"github.com/lebinh/aq/internal/provider"
)

const sample = `
collections:
  - resource: ec2
    collection: instances
    identifiers: [id]
    attributes: [instance_type, state, tags]
    items:
      - id: i-1
        instance_type: t3.micro
        state: {Name: running}
        tags:
          - {Key: Name, Value: web}
      - id: i-2
        instance_type: t3.small
        state: {Name: stopped}
    namespaces:
      eu-west-1:
        - id: i-9
          instance_type: m5.large
  - resource: s3
    collection: buckets
    identifiers: [name]
    attributes: [creation_date]
    items: []
`

func TestParseAndDescribe(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	schema, err := p.Describe(context.Background(), "us-east-1", "ec2", "instances")
	require.NoError(t, err)
	assert.Equal(t, ir.CollectionSchema{
		Identifiers: []string{"id"},
		Attributes:  []string{"instance_type", "state", "tags"},
	}, schema)
}

func TestList(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	items, err := p.List(context.Background(), "us-east-1", "ec2", "instances")
	require.NoError(t, err)
	require.Len(t, items, 2)

	id, ok := items[0].Get("id")
	assert.True(t, ok)
	assert.Equal(t, "i-1", id)

	state, _ := items[0].Get("state")
	assert.Equal(t, map[string]any{"Name": "running"}, state)

	_, ok = items[1].Get("tags")
	assert.False(t, ok)
}

func TestListNamespaceOverride(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	items, err := p.List(context.Background(), "eu-west-1", "ec2", "instances")
	require.NoError(t, err)
	require.Len(t, items, 1)

	id, _ := items[0].Get("id")
	assert.Equal(t, "i-9", id)
}

func TestUnknownCollection(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, err = p.Describe(context.Background(), "us-east-1", "ec2", "volumes")
	require.ErrorIs(t, err, provider.ErrUnknownCollection)
	assert.Contains(t, err.Error(), "<volumes> of resource <ec2>")

	_, err = p.List(context.Background(), "us-east-1", "rds", "instances")
	assert.ErrorIs(t, err, provider.ErrUnknownCollection)
}

func TestCollections(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	var catalog provider.Catalog = p
	collections, err := catalog.Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []provider.Collection{
		{Resource: "ec2", Collection: "instances"},
		{Resource: "s3", Collection: "buckets"},
	}, collections)
}

func TestInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing resource", "collections: [{collection: x, identifiers: [id]}]", "resource and collection are required"},
		{"no columns", "collections: [{resource: a, collection: b}]", "no columns"},
		{
			"duplicate",
			"collections: [{resource: a, collection: b, identifiers: [id]}, {resource: a, collection: b, identifiers: [id]}]",
			"duplicate collection a_b",
		},
		{"bad yaml", "collections: [", "parse fixture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	p, err := Load(path)
	require.NoError(t, err)

	var _ provider.Provider = p
	items, err := p.List(context.Background(), "us-east-1", "s3", "buckets")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
