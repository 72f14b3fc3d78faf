package user_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"partner-portal/internal/model/user"
)

func TestOwnership(t *testing.T) {
	u := user.User{
		AuthorityCodes:  []string{"650", "835"},
		ConsortiumCodes: []string{"C_0008"},
	}

	t.Run("OwnsAuthority", func(t *testing.T) {
		assert.True(t, u.OwnsAuthority("650"))
		assert.True(t, u.OwnsAuthority("835"))
		assert.False(t, u.OwnsAuthority("660"))
		assert.False(t, u.OwnsAuthority("C_0008"), "consortium codes live in their own set")
	})

	t.Run("OwnsConsortium", func(t *testing.T) {
		assert.True(t, u.OwnsConsortium("C_0008"))
		assert.False(t, u.OwnsConsortium("C_0005"))
		assert.False(t, u.OwnsConsortium("650"))
	})

	t.Run("empty user owns nothing", func(t *testing.T) {
		var empty user.User
		assert.False(t, empty.OwnsAuthority("650"))
		assert.False(t, empty.OwnsConsortium("C_0008"))
	})
}
