package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	cases := map[string]struct {
		got, want string
	}{
		"bare subscription":          {SubscriptionResourceName("proj", "orders-sub"), "projects/proj/subscriptions/orders-sub"},
		"full subscription":          {SubscriptionResourceName("proj", "projects/other/subscriptions/x"), "projects/other/subscriptions/x"},
		"bare topic trimmed":         {TopicResourceName("proj", " orders "), "projects/proj/topics/orders"},
		"topic used as subscription": {SubscriptionResourceName("proj", "projects/other/topics/x"), "projects/proj/subscriptions/projects/other/topics/x"},
		"empty name":                 {TopicResourceName("proj", ""), ""},
		"missing project":            {TopicResourceName("", "orders"), ""},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.want, tc.got, name)
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/secrets/sa.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}), 1)
}

func TestNewClientValidatesInputs(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, Resources{Topics: []string{"orders"}}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "proj"}, Resources{}, nil)
	assert.ErrorIs(t, err, errNoResources)
}

func TestLookupErr(t *testing.T) {
	assert.NoError(t, lookupErr("topic", "orders", nil))
	assert.EqualError(t, lookupErr("topic", "orders", status.Error(codes.NotFound, "gone")), `topic "orders" does not exist`)
	assert.ErrorContains(t, lookupErr("subscription", "orders-sub", errors.New("deadline")), `look up subscription "orders-sub": deadline`)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("orders"))
	assert.Nil(t, c.Subscription("orders-sub"))
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
}
