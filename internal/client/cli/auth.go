package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiephantom/blinkapp-desktop/internal/common"
)

func (a *App) login(ctx context.Context) {
	if a.isSignedIn() {
		fmt.Fprintln(a.out, "Already signed in. Use 'logout' first to switch accounts.")
		return
	}

	cred, err := a.auth.Authenticate(ctx)
	if err != nil {
		if errors.Is(err, common.ErrAuthCancelled) {
			fmt.Fprintln(a.out, "Sign-in cancelled.")
			return
		}
		fmt.Fprintln(a.out, "Sign-in failed:", err)
		return
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", cred.DisplayName, cred.Email)
}

func (a *App) logout(ctx context.Context) {
	if err := a.auth.SignOut(ctx); err != nil {
		fmt.Fprintln(a.out, "Sign-out failed:", err)
		return
	}
	fmt.Fprintln(a.out, "Signed out.")
}
