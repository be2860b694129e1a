package config

import (
	"flag"
	"os"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   drop folder to watch
//	-r string   remote root folder for uploads
//	-q int      quiet period in seconds before a new file is considered stable
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-q"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DropFolderPath, "d", cfg.DropFolderPath, "drop folder to watch for new files")
	fs.StringVar(&cfg.RemoteRootFolder, "r", cfg.RemoteRootFolder, "default remote folder for uploads")
	quietPeriod := fs.Int("q", int(cfg.QuietPeriod.Seconds()), "quiet period before a file is considered stable (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.QuietPeriod = time.Duration(*quietPeriod) * time.Second
}
