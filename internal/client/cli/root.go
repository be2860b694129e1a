package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) status() string {
	if cred := a.auth.Credential(); cred != nil {
		if cred.Email != "" {
			return fmt.Sprintf("(%s)", cred.Email)
		}
		return "(signed in)"
	}
	return "(signed out)"
}

// Run starts the REPL and blocks until EOF, "exit", or ctx cancellation.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Blink companion (type 'help' for commands)")

	if cred, err := a.auth.CheckExistingAuth(ctx); err == nil && cred != nil {
		fmt.Fprintf(a.out, "Signed in as %s\n", cred.Email)
	} else {
		fmt.Fprintln(a.out, "Not signed in. Use 'login' to connect your account.")
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Fprintf(a.out, "blink %s> ", a.status())
		line, err := a.reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			a.help()
		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "status":
			a.showStatus()
		case "l", "list":
			a.list(ctx)
		case "tags":
			a.showTags(ctx)
		case "assign":
			a.assign(ctx, args)
		case "tag":
			a.tag(ctx, args)
		case "rename":
			a.rename(ctx, args)
		case "process":
			a.process(ctx, args)
		case "processall":
			a.processAll(ctx)
		case "cancel":
			a.cancel(ctx, args)
		case "clear":
			a.clear(ctx)
		case "history":
			a.history(ctx)
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}
}

func (a *App) help() {
	if !a.isSignedIn() {
		fmt.Fprintln(a.out, "Available commands: login, status, (l)ist, exit")
		return
	}
	fmt.Fprintln(a.out, "Available commands: (l)ist, tags, assign <n> <folder>, tag <n> <tag-id>, rename <n> <name>,")
	fmt.Fprintln(a.out, "  process <n>, processall, cancel <n>, clear, history, status, logout, exit")
}
