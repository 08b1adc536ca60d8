package transport

import "context"

// Server is a transport server managed by the application lifecycle.
type Server interface {
	Start(context.Context) error
	Stop(context.Context) error
}
