package cli

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/calendar"
	"github.com/dmitrijs2005/dualcal/internal/client/services"
)

var errUsage = errors.New("usage")

func (a *App) report(err error) error {
	if services.IsOffline(err) {
		a.setMode(ModeOffline)
		a.printf("Server unavailable, try again when online\n")
		return err
	}
	a.printf("Error: %v\n", err)
	return err
}

func (a *App) usage(s string) error {
	a.printf("Usage: %s\n", s)
	return errUsage
}

func (a *App) SignIn(ctx context.Context, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		t, err := GetSecret(a.reader, "Identity token", a.out)
		if err != nil {
			return err
		}
		token = t
	}
	if token == "" {
		return a.usage("signin <token>")
	}

	acc, err := a.service.SignIn(ctx, token, a.config.Timezone)
	if err != nil {
		return a.report(err)
	}
	a.setAccount(acc)
	a.setMode(ModeOnline)
	a.printf("Signed in as %s (%s)\n", acc.Email, acc.Role)
	if len(acc.Dashboards) > 0 {
		a.printf("Dashboards: %s\n", strings.Join(acc.Dashboards, ", "))
	}

	if err := a.service.Sync(ctx); err != nil {
		a.report(err)
	}
	a.startFollow(ctx)
	return nil
}

func (a *App) SignOut(ctx context.Context) error {
	a.stopFollowing()
	if err := a.service.SignOut(ctx); err != nil {
		return a.report(err)
	}
	a.setAccount(nil)
	a.printf("Signed out\n")
	return nil
}

// parseView accepts "YYYY-MM".
func parseView(s string) (calendar.View, bool) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return calendar.View{}, false
	}
	return calendar.Today(t), true
}

func (a *App) ShowMonth(ctx context.Context, args []string) error {
	if len(args) > 0 {
		v, ok := parseView(args[0])
		if !ok {
			return a.usage("month [YYYY-MM]")
		}
		a.mu.Lock()
		a.view = v
		a.mu.Unlock()
	}
	return a.render(ctx)
}

func (a *App) Navigate(ctx context.Context, dir string) error {
	a.mu.Lock()
	switch dir {
	case "next":
		a.view = a.view.Next()
	case "prev":
		a.view = a.view.Prev()
	default:
		a.view = calendar.Today(a.now())
	}
	a.mu.Unlock()
	return a.render(ctx)
}

func (a *App) render(ctx context.Context) error {
	a.mu.Lock()
	v := a.view
	a.mu.Unlock()

	mv, err := a.service.Month(ctx, v)
	if err != nil {
		return a.report(err)
	}
	if err := calendar.Render(a.out, mv.Month, calendar.RenderOptions{CellWidth: cellWidth(), Marks: mv.Marks}); err != nil {
		return err
	}
	for _, it := range mv.Items {
		a.printf("  %s  %s (%s)\n", it.Date, it.Title, it.Kind)
	}
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if err := a.service.Sync(ctx); err != nil {
		return a.report(err)
	}
	a.setMode(ModeOnline)
	a.printf("Synced\n")
	return nil
}

func (a *App) AddEvent(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("add YYYY-MM-DD title")
	}
	ev, err := a.service.AddEvent(ctx, strings.Join(args[1:], " "), args[0])
	if err != nil {
		return a.report(err)
	}
	a.printf("Added %q on %s\n", ev.Title, ev.Date)
	return nil
}

// Settings takes a timezone ("-" keeps the current one) and a Hijri
// adjustment in days.
func (a *App) Settings(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("settings timezone|- adjustment")
	}
	adj, err := strconv.Atoi(args[1])
	if err != nil {
		return a.usage("settings timezone|- adjustment")
	}
	tz := args[0]
	if tz == "-" {
		tz = ""
	}

	acc, err := a.service.UpdateSettings(ctx, tz, adj)
	if err != nil {
		return a.report(err)
	}
	a.setAccount(acc)
	a.printf("Timezone %s, Hijri adjustment %+d\n", acc.Timezone, acc.HijriAdjustment)
	return nil
}

func (a *App) SetRole(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("setrole uid user|admin|master_admin")
	}
	if err := a.service.SetRole(ctx, args[0], args[1]); err != nil {
		return a.report(err)
	}
	a.printf("Role of %s set to %s\n", args[0], args[1])
	return nil
}

func (a *App) NextPrayer(ctx context.Context) error {
	np, err := a.service.NextPrayer(ctx)
	if err != nil {
		return a.report(err)
	}
	in := time.Duration(np.InSeconds) * time.Second
	a.printf("Next prayer: %s at %s (in %s)\n", np.Name, np.At, in)
	return nil
}

func (a *App) Export(ctx context.Context) error {
	a.mu.Lock()
	v := a.view
	a.mu.Unlock()

	exp, err := a.service.Export(ctx, v)
	if err != nil {
		return a.report(err)
	}
	a.printf("Exported %s\n%s\n", v, exp.URL)
	if exp.ExpiresAt != "" {
		a.printf("Link valid until %s\n", exp.ExpiresAt)
	}

	data, err := a.download(ctx, exp.URL)
	if err != nil {
		a.printf("Download failed: %v\n", err)
		return nil
	}
	saved, err := a.save(exportDir, exportFileName(exp.Key, v), data)
	if err != nil {
		a.printf("Saving export failed: %v\n", err)
		return nil
	}
	a.printf("Saved to %s\n", saved)
	return nil
}

const exportDir = "exports"

func exportFileName(key string, v calendar.View) string {
	if key != "" {
		return path.Base(key)
	}
	return fmt.Sprintf("%04d-%02d.ics", v.Year, v.Month)
}

var _ execIface = (*App)(nil)

