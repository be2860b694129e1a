package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
)

// entryAt resolves a 1-based position from the last listing to an entry.
func (a *App) entryAt(arg string) (models.QueueEntry, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(a.lastList) {
		fmt.Fprintf(a.out, "No entry #%s. Run 'list' first.\n", arg)
		return models.QueueEntry{}, false
	}
	return a.lastList[n-1], true
}

func (a *App) list(ctx context.Context) {
	a.lastList = a.queue.Refresh(ctx)
	if len(a.lastList) == 0 {
		fmt.Fprintln(a.out, "Queue is empty. Drop files into the watched folder.")
		return
	}

	for i, e := range a.lastList {
		line := fmt.Sprintf("%2d. %-30s %-12s -> %s", i+1, e.DisplayName, e.Status, e.TargetFolder)
		if len(e.TagIDs) > 0 {
			ids := make([]string, len(e.TagIDs))
			for j, t := range e.TagIDs {
				ids[j] = strconv.Itoa(t)
			}
			line += "  tags:" + strings.Join(ids, ",")
		}
		if e.LastError != "" {
			line += "  error: " + e.LastError
		}
		fmt.Fprintln(a.out, line)
	}
}

func (a *App) showTags(ctx context.Context) {
	cats := a.queue.Taxonomy(ctx)
	if len(cats) == 0 {
		fmt.Fprintln(a.out, "No tags available (backend unreachable or taxonomy empty).")
		return
	}
	for _, cat := range cats {
		fmt.Fprintf(a.out, "%s:\n", cat.Name)
		for _, t := range cat.Tags {
			fmt.Fprintf(a.out, "  [%d] %s\n", t.ID, t.Name)
		}
	}
}

func (a *App) assign(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(a.out, "Usage: assign <n> <folder>")
		return
	}
	e, ok := a.entryAt(args[0])
	if !ok {
		return
	}
	folder := strings.Join(args[1:], " ")
	if err := a.queue.AssignFolder(ctx, e.ID, folder); err != nil {
		fmt.Fprintln(a.out, "assign failed:", err)
		return
	}
	fmt.Fprintf(a.out, "%s -> %s\n", e.DisplayName, folder)
}

func (a *App) tag(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: tag <n> <tag-id>")
		return
	}
	e, ok := a.entryAt(args[0])
	if !ok {
		return
	}
	tagID, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(a.out, "tag id must be a number")
		return
	}
	if err := a.queue.ToggleTag(ctx, e.ID, tagID); err != nil {
		fmt.Fprintln(a.out, "tag failed:", err)
	}
}

func (a *App) rename(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(a.out, "Usage: rename <n> <new name>")
		return
	}
	e, ok := a.entryAt(args[0])
	if !ok {
		return
	}
	name := strings.Join(args[1:], " ")
	if err := a.queue.Rename(ctx, e.ID, name); err != nil {
		fmt.Fprintln(a.out, "rename failed:", err)
	}
}

func (a *App) process(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: process <n>")
		return
	}
	e, ok := a.entryAt(args[0])
	if !ok {
		return
	}
	if !a.requireSignIn() {
		return
	}
	fmt.Fprintf(a.out, "Uploading %s ...\n", e.DisplayName)
	if err := a.queue.Process(ctx, e.ID); err != nil {
		fmt.Fprintln(a.out, "upload failed:", err)
		return
	}
	fmt.Fprintf(a.out, "%s uploaded.\n", e.DisplayName)
}

func (a *App) processAll(ctx context.Context) {
	if !a.requireSignIn() {
		return
	}
	succeeded, failed := a.queue.ProcessAll(ctx)
	fmt.Fprintf(a.out, "Done: %d uploaded, %d failed.\n", succeeded, failed)
}

func (a *App) cancel(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: cancel <n>")
		return
	}
	e, ok := a.entryAt(args[0])
	if !ok {
		return
	}
	prompt := fmt.Sprintf("Remove %s from the queue and delete it from the drop folder? (y/N)", e.DisplayName)
	answer, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil || !strings.EqualFold(answer, "y") {
		fmt.Fprintln(a.out, "Aborted.")
		return
	}
	if err := a.queue.Cancel(ctx, e.ID); err != nil {
		fmt.Fprintln(a.out, "cancel failed:", err)
		return
	}
	fmt.Fprintf(a.out, "%s removed.\n", e.DisplayName)
}

func (a *App) clear(ctx context.Context) {
	answer, err := GetSimpleText(a.reader, "Remove all unprocessed files from the queue and the drop folder? (y/N)", a.out)
	if err != nil || !strings.EqualFold(answer, "y") {
		fmt.Fprintln(a.out, "Aborted.")
		return
	}
	cleared := a.queue.ClearUnprocessed(ctx)
	fmt.Fprintf(a.out, "Removed %d entries.\n", cleared)
}

func (a *App) history(ctx context.Context) {
	recs, err := a.queue.History(ctx, 20)
	if err != nil {
		fmt.Fprintln(a.out, "history unavailable:", err)
		return
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No completed uploads yet.")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(a.out, "%s  %-30s -> %s\n",
			r.CompletedAt.Format("2006-01-02 15:04"), r.DisplayName, r.TargetFolder)
	}
}

func (a *App) showStatus() {
	cred := a.auth.Credential()
	if cred == nil {
		fmt.Fprintln(a.out, "Signed out.")
		return
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", cred.DisplayName, cred.Email)
}

func (a *App) requireSignIn() bool {
	if a.isSignedIn() {
		return true
	}
	fmt.Fprintln(a.out, "Sign in first: 'login'")
	return false
}
