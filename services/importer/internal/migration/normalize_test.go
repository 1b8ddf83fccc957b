package migration

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrim(t *testing.T) {
	long := strings.Repeat("a", 257)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "Untitled"},
		{"blank", "   ", "Untitled"},
		{"surrounding space", "  Roadmap ", "Roadmap"},
		{"too long", long, long[:255]},
		{"multibyte", strings.Repeat("ż", 300), strings.Repeat("ż", 255)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trim(tt.in))
		})
	}
}

func TestCommentBody(t *testing.T) {
	assert.Equal(t, "…", CommentBody(""))
	assert.Equal(t, "…", CommentBody(" \n"))
	assert.Equal(t, "hello", CommentBody("hello"))
}

func TestMapColor(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	asana := ColorTables["Asana"]

	assert.Equal(t, "deeppurple", MapColor(asana, "dark-purple", rnd))
	assert.Equal(t, "blue", MapColor(nil, "Blue", rnd))

	for _, unknown := range []string{"", "none", "plaid"} {
		got := MapColor(asana, unknown, rnd)
		assert.Contains(t, Colors, got)
	}
}

func TestMillis(t *testing.T) {
	assert.Nil(t, Millis(nil))
	assert.Nil(t, Millis(&time.Time{}))

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ms := Millis(&at)
	if assert.NotNil(t, ms) {
		assert.Equal(t, int64(1714521600000), *ms)
	}
}
