// Package grpcrpc calls the backend's session procedures over gRPC.
package grpcrpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"staff-dashboard/internal/backend"
)

// Client implements backend.Client over a gRPC connection.
type Client struct {
	conn    *grpc.ClientConn
	apiKey  string
	timeout time.Duration
}

var _ backend.Client = (*Client)(nil)

// NewClient creates a lazily connecting client for target. creds sets transport security;
// extra options are appended (tests pass a bufconn dialer). timeout bounds each call when positive.
func NewClient(target, apiKey string, timeout time.Duration, creds credentials.TransportCredentials, extra ...grpc.DialOption) (*Client, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(Codec{}.Name())),
	}
	opts = append(opts, extra...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcrpc: new client: %w", err)
	}
	return &Client{conn: conn, apiKey: apiKey, timeout: timeout}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) StaffLogin(ctx context.Context, phone, pin string) (*backend.LoginResponse, error) {
	out := new(backend.LoginResponse)
	if err := c.invoke(ctx, methodStaffLogin, &StaffLoginRequest{Phone: phone, PIN: pin}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ValidateSession(ctx context.Context, sessionToken string) (*backend.ValidateResponse, error) {
	out := new(backend.ValidateResponse)
	if err := c.invoke(ctx, methodValidateSession, &SessionRequest{SessionToken: sessionToken}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LogoutSession(ctx context.Context, sessionToken string) error {
	return c.invoke(ctx, methodLogoutSession, &SessionRequest{SessionToken: sessionToken}, new(Ack))
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "apikey", c.apiKey)
	}
	return classify(method, c.conn.Invoke(ctx, fullMethod(method), req, resp))
}

// classify maps gRPC status codes onto the backend error taxonomy.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unimplemented:
		return fmt.Errorf("%s: %w: %w", method, backend.ErrFunctionNotFound, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%s: %w: %w", method, backend.ErrTransport, err)
	default:
		return fmt.Errorf("%s: %w", method, err)
	}
}
