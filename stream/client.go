package stream

import "context"

// Client opens subscriptions.
type Client interface {
	Subscribe(ctx context.Context, req *SubscribeRequest) (Subscription, error)
	Close() error
}

// Subscription is an open duplex stream. Recv and Send may be called from
// different goroutines, but neither concurrently with itself.
type Subscription interface {
	Recv() (Update, error)
	Send(req *SubscribeRequest) error
	CloseSend() error
}
