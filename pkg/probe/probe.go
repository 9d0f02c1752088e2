// Package probe answers the live environmental questions asked on every
// supervision tick. Probes never fail: anything short of a clear positive
// answer is reported as false.
package probe

import "context"

// Connectivity reports network reachability.
type Connectivity interface {
	IsConnected(ctx context.Context) bool
}

// Power reports whether the device is running from external power.
type Power interface {
	IsPowered(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to a Connectivity probe.
type ConnectivityFunc func(ctx context.Context) bool

func (f ConnectivityFunc) IsConnected(ctx context.Context) bool {
	return f(ctx)
}

// PowerFunc adapts a function to a Power probe.
type PowerFunc func(ctx context.Context) bool

func (f PowerFunc) IsPowered(ctx context.Context) bool {
	return f(ctx)
}

// Static is a probe with a fixed answer.
type Static bool

func (s Static) IsConnected(context.Context) bool { return bool(s) }

func (s Static) IsPowered(context.Context) bool { return bool(s) }
