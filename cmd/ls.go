package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fetchd-app/fetchd/internal/download"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List downloads with their current state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		c := mustClient()
		metadata, err := c.Metadata()
		exitOnErr(err)
		states, err := c.States()
		exitOnErr(err)

		if len(metadata) == 0 {
			fmt.Println("no downloads")
			return
		}

		byID := make(map[uuid.UUID]download.State, len(states))
		for _, entry := range states {
			byID[entry.ID] = entry.State
		}

		fmt.Printf("%-36s  %-12s  %-10s  %s\n", "ID", "STATE", "SIZE", "FILE")
		for _, md := range metadata {
			state := byID[md.ID]
			fmt.Printf("%-36s  %-12s  %-10s  %s\n",
				md.ID,
				stateLabel(state),
				humanize.IBytes(uint64(md.ContentLength)),
				filepath.Base(md.FilePath))
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
