package rohlik

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionGenerationMovesOnPopulateAndClear(t *testing.T) {
	s := &Session{}
	gen := s.Generation()

	s.Populate("frontend=a", "42", "7")
	assert.NotEqual(t, gen, s.Generation())
	assert.True(t, s.Populated())

	gen = s.Generation()
	s.Clear()
	assert.NotEqual(t, gen, s.Generation())
	assert.False(t, s.Populated())
	assert.Equal(t, "", s.CookieHeader())
}

func TestSetCookieHeaderIgnoresEmpty(t *testing.T) {
	s := &Session{}
	s.SetCookieHeader("frontend=a")
	s.SetCookieHeader("")
	assert.Equal(t, "frontend=a", s.CookieHeader())
}

func TestSetCookieHeaderReplacesWholesale(t *testing.T) {
	s := &Session{}
	s.SetCookieHeader("frontend=a; region=cz")
	s.SetCookieHeader("frontend=b")
	assert.Equal(t, "frontend=b", s.CookieHeader())
}
