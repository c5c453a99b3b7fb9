// ABOUTME: Tests for version constants
// ABOUTME: Ensures build identity is properly defined
package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionDefined(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Product)
	assert.NotEmpty(t, Manufacturer)
}
