package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTitle(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateTitle("Hello"))
	assert.Error(t, ValidateTitle("   "))
	assert.Error(t, ValidateTitle(strings.Repeat("a", MaxTitleLength+1)))
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got, err := NormalizeTags([]string{" Go ", "go", "", "Web Dev", "GO"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web dev"}, got)

	_, err = NormalizeTags([]string{"<script>"})
	assert.Error(t, err)

	many := make([]string, MaxTags+1)
	for i := range many {
		many[i] = strings.Repeat("t", i+1)
	}
	_, err = NormalizeTags(many)
	assert.Error(t, err)
}
