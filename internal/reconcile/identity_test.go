package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	t.Run("Derivation is pure", func(t *testing.T) {
		assert.Equal(t, Identity("QuarterlyAccessReview"), Identity("QuarterlyAccessReview"))
	})

	t.Run("Lowercases and prefixes", func(t *testing.T) {
		assert.Equal(t, "governance.quarterlyaccessreview", Identity("QuarterlyAccessReview"))
	})

	t.Run("Distinct keys derive distinct identities", func(t *testing.T) {
		assert.NotEqual(t, Identity("weekly-audit"), Identity("nightly-sync"))
	})
}

func TestInNamespace(t *testing.T) {
	assert.True(t, InNamespace("governance.weekly-audit"))
	assert.False(t, InNamespace("billing.invoice-run"))
	assert.False(t, InNamespace("weekly-audit"))
}
