package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoResources       = errors.New("at least one pubsub topic or subscription is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Resources are the topics and subscriptions a process cannot run without. NewClient
// and Ping fail while any of them is missing.
type Resources struct {
	Topics        []string
	Subscriptions []string
}

func (r Resources) empty() bool {
	return len(r.Topics) == 0 && len(r.Subscriptions) == 0
}

// Client wraps the Pub/Sub v2 client with project-relative resource names.
type Client struct {
	client    *pubsub.Client
	projectID string
	needs     Resources
}

func NewClient(ctx context.Context, gcp config.GCPConfig, needs Resources, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if needs.empty() {
		return nil, errNoResources
	}

	inner, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{client: inner, projectID: projectID, needs: needs}
	if err := c.verify(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project":   projectID,
			"topics":        needs.Topics,
			"subscriptions": needs.Subscriptions,
		}), "pubsub client ready")
	}
	return c, nil
}

// clientOptions prefers inline JSON credentials, then a key file, then ambient ADC.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// verify reports every missing resource, not just the first.
func (c *Client) verify(ctx context.Context) error {
	var errs error
	for _, name := range c.needs.Topics {
		full := TopicResourceName(c.projectID, name)
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		errs = multierr.Append(errs, lookupErr("topic", name, err))
	}
	for _, name := range c.needs.Subscriptions {
		full := SubscriptionResourceName(c.projectID, name)
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		errs = multierr.Append(errs, lookupErr("subscription", name, err))
	}
	return errs
}

func lookupErr(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("look up %s %q: %w", kind, name, err)
	}
}

// Subscription returns a receiver for a subscription ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	if full := SubscriptionResourceName(c.projectID, name); full != "" {
		return c.client.Subscriber(full)
	}
	return nil
}

// Publisher returns a publisher for a topic ID or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	if full := TopicResourceName(c.projectID, name); full != "" {
		return c.client.Publisher(full)
	}
	return nil
}

// Ping re-checks the resources NewClient verified.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func SubscriptionResourceName(projectID, name string) string {
	return resourceName(projectID, "subscriptions", name)
}

func TopicResourceName(projectID, name string) string {
	return resourceName(projectID, "topics", name)
}

// resourceName expands a bare ID to projects/<project>/<kind>/<id>. Names that are
// already full resource names of the same kind pass through.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
