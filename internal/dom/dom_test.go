package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAny(t *testing.T) {
	phrases := []string{"weekly invitation limit", "Limite Semanal"}

	assert.True(t, ContainsAny("You've reached the WEEKLY invitation limit", phrases))
	assert.True(t, ContainsAny("Você atingiu o limite semanal de convites", phrases))
	assert.False(t, ContainsAny("Connect with Maria", phrases))
	assert.False(t, ContainsAny("anything", nil))
	assert.False(t, ContainsAny("anything", []string{""}))
}
