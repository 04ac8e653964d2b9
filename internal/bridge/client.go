package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_captions/internal/engine"
)

// DefaultTimeout is how long a client waits for the page to answer.
const DefaultTimeout = 10 * time.Second

var errTimeout = errors.New("timeout")

// Client is the unprivileged side. It satisfies the transport the caption
// extractor expects.
type Client struct {
	bus     *Bus
	origin  string
	timeout time.Duration
}

// NewClient creates a client posting as origin. A zero timeout means DefaultTimeout.
func NewClient(bus *Bus, origin string, timeout time.Duration) *Client {
	if origin == "" {
		origin = DefaultOrigin
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{bus: bus, origin: origin, timeout: timeout}
}

// Fetch asks the page to GET url with the page's credentials.
func (c *Client) Fetch(ctx context.Context, url string) FetchResult {
	resp, err := c.roundTrip(ctx, Message{Type: TypeFetch, URL: url}, TypeFetchResult)
	if err != nil {
		return FetchResult{Error: err.Error()}
	}
	return FetchResult{
		OK:          resp.OK,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Text,
		Error:       resp.Error,
	}
}

// PostAPI asks the page to call an InnerTube endpoint.
func (c *Client) PostAPI(ctx context.Context, endpoint string, payload map[string]any, ov Overrides) APIResult {
	msg := Message{
		Type:          TypeAPI,
		Endpoint:      endpoint,
		Payload:       payload,
		APIKey:        ov.APIKey,
		ClientVersion: ov.ClientVersion,
	}
	resp, err := c.roundTrip(ctx, msg, TypeAPIResult)
	if err != nil {
		return APIResult{Error: err.Error()}
	}
	return APIResult{
		OK:          resp.OK,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		JSON:        resp.JSON,
		Text:        resp.Text,
		Error:       resp.Error,
	}
}

// roundTrip posts msg under a fresh id and waits for the matching response.
// Responses from other origins or for other ids are ignored.
func (c *Client) roundTrip(ctx context.Context, msg Message, wantType string) (Response, error) {
	engine.IncrBridgeCalls()
	msg.ID = uuid.NewString()

	// Subscribe before posting so a fast page cannot answer into the void.
	ch, unsubscribe := c.bus.Subscribe(subscriberBuffer)
	defer unsubscribe()

	if err := c.bus.Post(c.origin, msg); err != nil {
		return Response{}, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-timer.C:
			engine.IncrBridgeTimeouts()
			slog.Debug("bridge: request timed out",
				slog.String("type", msg.Type), slog.String("id", msg.ID))
			return Response{}, errTimeout
		case env, ok := <-ch:
			if !ok {
				return Response{}, errors.New("bridge closed")
			}
			if env.Origin != c.origin {
				continue
			}
			h, ok := peek(env.Data)
			if !ok || h.Type != wantType || h.ID != msg.ID {
				continue
			}
			var resp Response
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				return Response{}, err
			}
			return resp, nil
		}
	}
}
