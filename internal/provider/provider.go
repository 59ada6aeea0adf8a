// Package provider defines the contract between the federation engine and
// the services that supply collection data.
package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/lebinh/aq/internal/ir"
)

// ErrUnknownCollection is returned (possibly wrapped) when a resource does
// not expose the requested collection.
var ErrUnknownCollection = errors.New("unknown collection")

// Provider lists remote collections.
//
// namespace selects the partition to read from (for AWS, the region).
// resource and collection come from the table name: ec2_instances is
// resource "ec2", collection "instances".
type Provider interface {
	// Describe returns the column schema of a collection. It must return
	// the same schema every time it is called for the same collection.
	Describe(ctx context.Context, namespace, resource, collection string) (ir.CollectionSchema, error)

	// List returns every item in the collection.
	List(ctx context.Context, namespace, resource, collection string) ([]ir.Item, error)
}

// Catalog is implemented by providers that can enumerate their collections.
type Catalog interface {
	Collections(ctx context.Context) ([]Collection, error)
}

// Collection names one collection of one resource.
type Collection struct {
	Resource   string `json:"resource" yaml:"resource"`
	Collection string `json:"collection" yaml:"collection"`
}

// TableName returns the table the collection is queried as.
func (c Collection) TableName() string {
	return c.Resource + "_" + c.Collection
}

// SplitTableName splits a table name into resource and collection at the
// first underscore. ok is false when either part would be empty.
func SplitTableName(table string) (resource, collection string, ok bool) {
	resource, collection, found := strings.Cut(table, "_")
	if !found || resource == "" || collection == "" {
		return "", "", false
	}
	return resource, collection, true
}
