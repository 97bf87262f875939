package grpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/service"
)

// Client calls safetywatch.v1.Dashboard over the JSON codec.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects without transport security unless opts say otherwise.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ListAlerts(ctx context.Context, in service.ListAlertsInput) ([]models.Alert, error) {
	out := new(ListAlertsResponse)
	if err := c.conn.Invoke(ctx, fullMethod("ListAlerts"), &in, out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (c *Client) CreateAlert(ctx context.Context, in service.CreateAlertInput) (*models.Alert, error) {
	out := new(models.Alert)
	if err := c.conn.Invoke(ctx, fullMethod("CreateAlert"), &in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ResolveAlert(ctx context.Context, id string) (*models.Alert, error) {
	out := new(models.Alert)
	if err := c.conn.Invoke(ctx, fullMethod("ResolveAlert"), &service.IDInput{ID: id}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	out := new(models.User)
	if err := c.conn.Invoke(ctx, fullMethod("GetUser"), &service.IDInput{ID: id}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// StreamSnapshots calls fn for every snapshot until ctx ends, the server
// closes the stream or fn fails.
func (c *Client) StreamSnapshots(ctx context.Context, fn func(*models.Snapshot) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.conn.NewStream(ctx, &dashboardServiceDesc.Streams[0], fullMethod("StreamSnapshots"))
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&StreamSnapshotsRequest{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		snap := new(models.Snapshot)
		if err := stream.RecvMsg(snap); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}
