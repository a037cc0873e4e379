package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

func TestRouter_Route(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		query string
		want  domain.Mode
	}{
		{"Black women in tech", domain.ModePlatform},
		{"Any upcoming events?", domain.ModeEvent},
		{"What's happening this weekend", domain.ModeEvent},
		{"Tech conferences in June", domain.ModeEvent},
		{"Anything on 2025-06-01?", domain.ModeEvent},
		{"hiking groups for latinx folks", domain.ModePlatform},
		{"May I ask about outdoor communities", domain.ModePlatform},
		{"When is the next meetup", domain.ModeEvent},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Route(tt.query))
		})
	}
}

func TestRouter_PlatformType(t *testing.T) {
	r := NewRouter()

	typ, ok := r.PlatformType("software engineering communities")
	assert.True(t, ok)
	assert.Equal(t, domain.PlatformTypeTech, typ)

	typ, ok = r.PlatformType("Hiking clubs")
	assert.True(t, ok)
	assert.Equal(t, domain.PlatformTypeOutdoor, typ)

	_, ok = r.PlatformType("tech people who love hiking")
	assert.False(t, ok, "mixed cues apply no filter")

	_, ok = r.PlatformType("Black Women Talk")
	assert.False(t, ok)
}
