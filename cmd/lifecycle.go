package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fetchd-app/fetchd/internal/client"
)

var rmDeleteFile bool

func idCommand(use, short string, op func(*client.Client, uuid.UUID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c := mustClient()
			id, err := parseID(c, args[0])
			exitOnErr(err)
			exitOnErr(op(c, id))
			fmt.Println("ok")
		},
	}
}

var startCmd = idCommand("start", "Start a download from scratch (truncates any partial file)",
	func(c *client.Client, id uuid.UUID) error { return c.Start(id) })

var resumeCmd = idCommand("resume", "Resume a download from the bytes already on disk",
	func(c *client.Client, id uuid.UUID) error { return c.Resume(id) })

var pauseCmd = idCommand("pause", "Pause a running download",
	func(c *client.Client, id uuid.UUID) error { return c.Pause(id) })

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a download from the daemon",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := mustClient()
		id, err := parseID(c, args[0])
		exitOnErr(err)
		exitOnErr(c.Delete(id, rmDeleteFile))
		fmt.Println("ok")
	},
}

var startAllCmd = &cobra.Command{
	Use:   "start-all",
	Short: "Resume every idle download",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnErr(mustClient().StartAll())
		fmt.Println("ok")
	},
}

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Pause every running download",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnErr(mustClient().StopAll())
		fmt.Println("ok")
	},
}

func init() {
	rmCmd.Flags().BoolVar(&rmDeleteFile, "delete-file", false, "Also delete the file on disk")
	rootCmd.AddCommand(startCmd, resumeCmd, pauseCmd, rmCmd, startAllCmd, stopAllCmd)
}
