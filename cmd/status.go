package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fetchd-app/fetchd/internal/download"
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show metadata and live state of one download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := mustClient()
		id, err := parseID(c, args[0])
		exitOnErr(err)
		detail, err := c.Get(id)
		exitOnErr(err)

		fmt.Printf("id:    %s\n", detail.Metadata.ID)
		fmt.Printf("url:   %s\n", detail.Metadata.URL)
		fmt.Printf("file:  %s\n", detail.Metadata.FilePath)
		fmt.Printf("size:  %s\n", humanize.IBytes(uint64(detail.Metadata.ContentLength)))
		fmt.Printf("state: %s\n", stateLabel(detail.State))
		if detail.State.Status == download.StatusRunning {
			fmt.Printf("  %s of %s at %s/s\n",
				humanize.IBytes(uint64(detail.State.BytesDownloaded)),
				humanize.IBytes(uint64(detail.Metadata.ContentLength)),
				humanize.IBytes(uint64(detail.State.BytesPerSecond)))
		}
		if detail.State.Status == download.StatusPaused {
			fmt.Printf("  %s of %s on disk\n",
				humanize.IBytes(uint64(detail.State.BytesDownloaded)),
				humanize.IBytes(uint64(detail.Metadata.ContentLength)))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
