package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/fetchd-app/fetchd/internal/client"
	"github.com/fetchd-app/fetchd/internal/download"
)

// mustClient locates the running daemon or exits with a hint.
func mustClient() *client.Client {
	c, err := client.Discover()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return c
}

// parseID turns a CLI argument into a download id, accepting unique id
// prefixes against the daemon's current listing.
func parseID(c *client.Client, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	metadata, err := c.Metadata()
	if err != nil {
		return uuid.Nil, err
	}
	var matches []uuid.UUID
	for _, md := range metadata {
		if len(arg) >= 4 && len(arg) <= len(md.ID.String()) && md.ID.String()[:len(arg)] == arg {
			matches = append(matches, md.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return uuid.Nil, fmt.Errorf("no download matches id %q", arg)
	default:
		return uuid.Nil, fmt.Errorf("id prefix %q is ambiguous", arg)
	}
}

func stateLabel(s download.State) string {
	switch s.Status {
	case download.StatusRunning:
		return "downloading"
	case download.StatusComplete:
		return "complete"
	case download.StatusError:
		return "error: " + s.Error
	default:
		return "paused"
	}
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
