// Package geyser implements stream.Client over the Yellowstone Geyser gRPC
// Subscribe stream.
package geyser

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"time"

	middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/io/logs"
	"github.com/prysmaticlabs/voteperf/stream"
	"go.opencensus.io/plugin/ocgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

const (
	subscribeMethod = "/geyser.Geyser/Subscribe"
	tokenHeader     = "x-token"

	// DefaultMaxCallRecvMsgSize fits full blocks with transactions.
	DefaultMaxCallRecvMsgSize = 64 << 20
)

var subscribeDesc = &grpc.StreamDesc{
	StreamName:    "Subscribe",
	ServerStreams: true,
	ClientStreams: true,
}

// Config for a geyser connection.
type Config struct {
	// Endpoint is an http(s) URL; https enables TLS.
	Endpoint           string
	XToken             string
	MaxCallRecvMsgSize int
	KeepaliveTime      time.Duration
	KeepaliveTimeout   time.Duration
	// DialOptions are appended after the defaults.
	DialOptions []grpc.DialOption
}

// Client is a connection to a geyser endpoint.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

var _ stream.Client = (*Client)(nil)

// Dial connects to the endpoint in cfg.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	target, secure, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	var creds credentials.TransportCredentials
	if secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		creds = insecure.NewCredentials()
		log.Warn("You are using an insecure gRPC connection to the geyser endpoint")
	}
	recvSize := cfg.MaxCallRecvMsgSize
	if recvSize <= 0 {
		recvSize = DefaultMaxCallRecvMsgSize
	}
	kaTime, kaTimeout := cfg.KeepaliveTime, cfg.KeepaliveTimeout
	if kaTime <= 0 {
		kaTime = 10 * time.Second
	}
	if kaTimeout <= 0 {
		kaTimeout = time.Second
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(recvSize)),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                kaTime,
			Timeout:             kaTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithStatsHandler(&ocgrpc.ClientHandler{}),
		grpc.WithStreamInterceptor(middleware.ChainStreamClient(
			grpc_prometheus.StreamClientInterceptor,
		)),
	}
	opts = append(opts, cfg.DialOptions...)
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not dial endpoint: %s", logs.MaskCredentialsLogging(cfg.Endpoint))
	}
	log.WithField("endpoint", logs.MaskCredentialsLogging(cfg.Endpoint)).Info("Connected to geyser endpoint")
	return &Client{conn: conn, token: cfg.XToken}, nil
}

// parseEndpoint turns an http(s) URL into a dial target. Bare host:port
// targets are dialed without TLS.
func parseEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, errors.New("empty geyser endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		if _, _, splitErr := net.SplitHostPort(endpoint); splitErr == nil {
			return endpoint, false, nil
		}
		return "", false, errors.Errorf("invalid geyser endpoint %q", logs.MaskCredentialsLogging(endpoint))
	}
	secure := false
	switch u.Scheme {
	case "https":
		secure = true
	case "http":
	default:
		return "", false, errors.Errorf("unsupported scheme %q in geyser endpoint", u.Scheme)
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if secure {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return host, secure, nil
}

// Subscribe opens the Subscribe stream and sends req as the first message.
func (c *Client) Subscribe(ctx context.Context, req *stream.SubscribeRequest) (stream.Subscription, error) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, tokenHeader, c.token)
	}
	cs, err := c.conn.NewStream(ctx, subscribeDesc, subscribeMethod, grpc.ForceCodec(codec{}))
	if err != nil {
		return nil, errors.Wrap(err, "could not open subscribe stream")
	}
	sub := &subscription{cs: cs}
	if err := sub.Send(req); err != nil {
		return nil, errors.Wrap(err, "could not send subscribe request")
	}
	return sub, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

type subscription struct {
	cs grpc.ClientStream
}

func (s *subscription) Recv() (stream.Update, error) {
	frame := &updateFrame{}
	if err := s.cs.RecvMsg(frame); err != nil {
		return nil, err
	}
	return frame.update, nil
}

func (s *subscription) Send(req *stream.SubscribeRequest) error {
	return s.cs.SendMsg(req)
}

func (s *subscription) CloseSend() error {
	return s.cs.CloseSend()
}
