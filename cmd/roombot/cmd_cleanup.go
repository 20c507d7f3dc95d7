package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanupYes bool

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupYes, "yes", "y", false, "delete without asking")
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete generated test users and rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, err := apiClient(cfg)
		if err != nil {
			return err
		}

		data, err := client.FindTestData(cmd.Context())
		if err != nil {
			return err
		}
		if data.Empty() {
			fmt.Println("No test data found.")
			return nil
		}

		fmt.Printf("Found %d test users:\n", len(data.Users))
		for _, u := range data.Users {
			fmt.Printf("  %s (%s)\n", u.Email, u.ID)
		}
		fmt.Printf("Found %d test rooms:\n", len(data.Rooms))
		for _, r := range data.Rooms {
			fmt.Printf("  %s (%s)\n", r.Name, r.JID)
		}
		fmt.Println()

		if !cleanupYes && !confirm(bufio.NewScanner(os.Stdin), "Delete all of the above?") {
			fmt.Println("Aborted.")
			return nil
		}

		report := client.DeleteTestData(cmd.Context(), data)
		fmt.Printf("Deleted %d rooms and %d users.\n", report.RoomsDeleted, report.UsersDeleted)
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d deletions failed: %w", len(report.Failures), errors.Join(report.Failures...))
		}
		return nil
	},
}
