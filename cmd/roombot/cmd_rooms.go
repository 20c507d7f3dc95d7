package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(roomsCmd)
	roomsCmd.AddCommand(roomsListCmd)
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Inspect rooms on the chat backend",
}

var roomsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the app's rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, err := apiClient(cfg)
		if err != nil {
			return err
		}
		rooms, err := client.ListRooms(cmd.Context())
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			fmt.Fprintln(os.Stdout, "No rooms.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tJID\tPARTICIPANTS")
		for _, r := range rooms {
			fmt.Fprintf(w, "%s\t%s\t%d\n", r.Name, r.JID, len(r.Participants))
		}
		return w.Flush()
	},
}
