package userctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blogem/linkedin-login/models"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetSite(ctx))
	assert.Zero(t, GetUserID(ctx))

	site := &models.Site{ID: 3, Host: "shop.example.com"}
	ctx = SetUserID(SetSite(ctx, site), 42)

	assert.Same(t, site, GetSite(ctx))
	assert.Equal(t, int64(42), GetUserID(ctx))
}
