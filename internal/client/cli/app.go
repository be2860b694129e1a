// Package cli implements the interactive console frontend of the Blink
// companion: a small REPL over the intake queue. Entries are addressed by
// their position in the last printed listing.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

// queueService is the slice of the intake coordinator the CLI uses.
type queueService interface {
	Refresh(ctx context.Context) []models.QueueEntry
	Taxonomy(ctx context.Context) []models.TagCategory
	AssignFolder(ctx context.Context, id, displayFolder string) error
	ToggleTag(ctx context.Context, id string, tagID int) error
	Rename(ctx context.Context, id, name string) error
	Process(ctx context.Context, id string) error
	ProcessAll(ctx context.Context) (succeeded, failed int)
	Cancel(ctx context.Context, id string) error
	ClearUnprocessed(ctx context.Context) int
	History(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}

// authService is the slice of the credential manager the CLI uses.
type authService interface {
	Authenticate(ctx context.Context) (*models.Credential, error)
	CheckExistingAuth(ctx context.Context) (*models.Credential, error)
	SignOut(ctx context.Context) error
	Credential() *models.Credential
}

// App wires the REPL to the queue and the credential manager.
type App struct {
	queue queueService
	auth  authService
	log   logging.Logger

	reader *bufio.Reader
	out    io.Writer

	// lastList maps the printed position numbers to entry IDs.
	lastList []models.QueueEntry
}

// NewApp returns an App reading from stdin and writing to stdout.
func NewApp(queue queueService, auth authService, log logging.Logger) *App {
	return &App{
		queue:  queue,
		auth:   auth,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (a *App) isSignedIn() bool {
	return a.auth.Credential() != nil
}
