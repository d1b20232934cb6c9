package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var addStart bool

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Create a download on the running daemon",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := mustClient()
		metadata, err := c.Create(args[0])
		exitOnErr(err)
		fmt.Printf("added %s\n", metadata.ID)
		fmt.Printf("  file: %s\n", metadata.FilePath)
		fmt.Printf("  size: %s\n", humanize.IBytes(uint64(metadata.ContentLength)))
		if addStart {
			exitOnErr(c.Start(metadata.ID))
			fmt.Println("  started")
		}
	},
}

func init() {
	addCmd.Flags().BoolVarP(&addStart, "start", "s", false, "Start the transfer immediately")
	rootCmd.AddCommand(addCmd)
}
