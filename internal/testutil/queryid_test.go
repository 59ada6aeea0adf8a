package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedQueryIDGenerator(t *testing.T) {
	gen := NewFixedQueryIDGenerator("q-1")
	assert.Equal(t, "q-1", gen.Generate())
	assert.Equal(t, "q-1", gen.Generate())
}

func TestFixedQueryIDGenerator_Default(t *testing.T) {
	assert.Equal(t, "test-query", NewFixedQueryIDGenerator("").Generate())
}
