package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it.
type execIface interface {
	isLoggedIn() bool
	SignIn(ctx context.Context, args []string) error
	SignOut(ctx context.Context) error
	ShowMonth(ctx context.Context, args []string) error
	Navigate(ctx context.Context, dir string) error
	Sync(ctx context.Context) error
	AddEvent(ctx context.Context, args []string) error
	Settings(ctx context.Context, args []string) error
	SetRole(ctx context.Context, args []string) error
	NextPrayer(ctx context.Context) error
	Export(ctx context.Context) error
}

// runREPL reads commands until EOF, "exit" or "quit". Handlers report their
// own errors, so the loop ignores them.
//
//	Not signed in:  help, signin [token], month, next, prev, today, exit
//	Signed in:      also sync, add, settings, setrole, prayer, export, signout
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("dualcal %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (m)onth [YYYY-MM], (n)ext, (p)rev, today, sync, add YYYY-MM-DD title, settings timezone|- adjustment, setrole uid role, prayer, export, signout, exit")
			} else {
				printlnFn("Available commands: signin [token], (m)onth [YYYY-MM], (n)ext, (p)rev, today, exit")
			}

		case "signin":
			_ = a.SignIn(ctx, args)

		case "m", "month":
			_ = a.ShowMonth(ctx, args)

		case "n", "next":
			_ = a.Navigate(ctx, "next")

		case "p", "prev":
			_ = a.Navigate(ctx, "prev")

		case "today":
			_ = a.Navigate(ctx, "today")

		case "sync", "add", "settings", "setrole", "prayer", "export", "signout":
			if !a.isLoggedIn() {
				printlnFn("Please sign in first")
				continue
			}
			switch cmd {
			case "sync":
				_ = a.Sync(ctx)
			case "add":
				_ = a.AddEvent(ctx, args)
			case "settings":
				_ = a.Settings(ctx, args)
			case "setrole":
				_ = a.SetRole(ctx, args)
			case "prayer":
				_ = a.NextPrayer(ctx)
			case "export":
				_ = a.Export(ctx)
			case "signout":
				_ = a.SignOut(ctx)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
