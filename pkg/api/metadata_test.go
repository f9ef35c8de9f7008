package api_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/api"
)

func TestMetadataApply(t *testing.T) {
	as := assert.New(t)

	base := api.Metadata{"caller": "svc-a", "region": "us-east"}
	merged := base.Apply(api.Metadata{"region": "eu-west", "trace": "t1"})

	as.Equal("svc-a", merged["caller"])
	as.Equal("eu-west", merged["region"])
	as.Equal("t1", merged["trace"])

	// the receiver is never mutated
	as.Equal("us-east", base["region"])

	as.NotNil(api.Metadata(nil).Apply(nil))
	as.Empty(api.Metadata(nil).Apply(nil))
}

func TestMetadataGetString(t *testing.T) {
	as := assert.New(t)

	m := api.Metadata{"caller": "svc-a", "count": 3, "empty": ""}

	v, ok := m.GetString("caller")
	as.True(ok)
	as.Equal("svc-a", v)

	_, ok = m.GetString("count")
	as.False(ok)
	_, ok = m.GetString("empty")
	as.False(ok)
	_, ok = m.GetString("missing")
	as.False(ok)
}

func TestMetadataContext(t *testing.T) {
	as := assert.New(t)

	m := api.Metadata{api.MetaRunID: "run-1"}
	ctx := api.WithMetadata(context.Background(), m)

	as.Equal(m, api.MetadataFrom(ctx))
	as.Empty(api.MetadataFrom(context.Background()))
}
