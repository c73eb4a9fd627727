// Package system defines the lifecycle contract shared by background
// components.
package system

import "context"

// Service is a lifecycle-managed component. The runtime starts services in
// registration order and stops them in reverse, so each implementation
// must make Start and Stop idempotent.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
