package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/calendar"
	"github.com/dmitrijs2005/dualcal/internal/client/client"
	"github.com/dmitrijs2005/dualcal/internal/client/config"
	"github.com/dmitrijs2005/dualcal/internal/client/repositories/items"
	"github.com/dmitrijs2005/dualcal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dualcal/internal/client/services"
	"github.com/dmitrijs2005/dualcal/internal/filex"
	"github.com/dmitrijs2005/dualcal/internal/netx"
	pb "github.com/dmitrijs2005/dualcal/internal/proto"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	service services.CalendarService
	reader  *bufio.Reader
	out     io.Writer
	now     func() time.Time

	download func(ctx context.Context, url string) ([]byte, error)
	save     func(dir, name string, data []byte) (string, error)

	mu      sync.Mutex
	mode    Mode
	account *pb.Account
	view    calendar.View

	stopFollow context.CancelFunc
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.CachePath)
	if err != nil {
		log.Printf("error initializing cache: %s", err.Error())
		return nil, err
	}

	apiClient, err := client.NewCalendarClientService(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	svc := services.NewCalendarService(apiClient, items.NewSQLiteRepository(db), metadata.NewSQLiteRepository(db))
	return newApp(c, svc, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, svc services.CalendarService, in io.Reader, out io.Writer) *App {
	now := time.Now
	return &App{
		config:  c,
		service: svc,
		reader:  bufio.NewReader(in),
		out:     out,
		now:     now,
		view:    calendar.Today(now()),

		download: netx.DownloadPresignedURL,
		save:     filex.SaveInSubdDir,
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.account != nil
}

func (a *App) setAccount(acc *pb.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.account = acc
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.view.String()
	if a.account != nil {
		s = a.account.Email + " " + s
	}
	if a.mode != "" {
		s += " " + string(a.mode)
	}
	return "(" + s + ")"
}

// Run restores or creates a session, starts the background watchers and
// hands control to the REPL.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.service.Close()

	a.printf("Welcome to dualcal (type 'help' for commands)\n")

	if acc, err := a.service.Restore(ctx); err == nil {
		a.setAccount(acc)
	} else if a.config.IdentityToken != "" {
		_ = a.SignIn(ctx, []string{a.config.IdentityToken})
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	if a.isLoggedIn() {
		a.startFollow(ctx)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.service.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

// startFollow keeps cached events live while signed in.
func (a *App) startFollow(ctx context.Context) {
	a.mu.Lock()
	if a.stopFollow != nil {
		a.stopFollow()
	}
	fctx, cancel := context.WithCancel(ctx)
	a.stopFollow = cancel
	a.mu.Unlock()

	go func() {
		if err := a.service.Follow(fctx, nil); err != nil && fctx.Err() == nil {
			log.Printf("live updates stopped: %v", err)
		}
	}()
}

func (a *App) stopFollowing() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopFollow != nil {
		a.stopFollow()
		a.stopFollow = nil
	}
}
