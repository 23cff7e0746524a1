// Package client talks to the dualcal server over gRPC and opens the
// CLI's local cache.
package client

import (
	"context"

	pb "github.com/dmitrijs2005/dualcal/internal/proto"
)

// Client is the server surface the CLI uses.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	// SignIn exchanges an identity-provider token for a session.
	SignIn(ctx context.Context, providerToken string, req pb.SignInRequest) (*pb.SignInResponse, error)
	// Resume reuses tokens saved by an earlier session.
	Resume(providerToken, sessionToken string)
	SessionToken() string
	Account(ctx context.Context) (*pb.Account, error)
	UpdateSettings(ctx context.Context, req pb.UpdateSettingsRequest) (*pb.Account, error)
	SetRole(ctx context.Context, uid, role string) error
	AddEvent(ctx context.Context, title, date string) (*pb.Event, error)
	ListHolidays(ctx context.Context) ([]pb.Holiday, error)
	NextPrayer(ctx context.Context) (*pb.NextPrayer, error)
	ExportMonth(ctx context.Context, year, month int) (*pb.Export, error)
	// WatchEvents calls fn with every snapshot of the caller's events until
	// ctx ends or the stream fails.
	WatchEvents(ctx context.Context, fn func([]pb.Event)) error
}
