package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/user/roombot/internal/config"
	"github.com/user/roombot/internal/provision"
)

var (
	setupName       string
	setupEnvFile    string
	setupCreateRoom bool
)

func init() {
	setupCmd.Flags().StringVar(&setupName, "name", "", "bot display name (prompted when empty)")
	setupCmd.Flags().StringVar(&setupEnvFile, "env-file", config.DotEnvFile, "file to write the bot credentials to")
	setupCmd.Flags().BoolVar(&setupCreateRoom, "create-room", false, "create a new room instead of joining the first one")
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision a bot account and room",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, err := apiClient(cfg)
		if err != nil {
			return err
		}

		name := setupName
		if name == "" {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Println("Roombot Setup")
			fmt.Println("Press Enter to accept the default value shown in brackets.")
			fmt.Println()
			name = prompt(scanner, "Bot display name", "Roombot")
		}

		account, err := client.ProvisionBot(cmd.Context(), provision.SetupOptions{
			Name:       name,
			Domain:     cfg.XMPP.Domain,
			CreateRoom: setupCreateRoom,
		})
		if err != nil {
			return fmt.Errorf("provision bot: %w", err)
		}

		values := map[string]string{
			"BOT_JID":       account.JID,
			"BOT_PASSWORD":  account.Password,
			"BOT_NAME":      name,
			"ROOM_JID":      account.RoomJID,
			"XMPP_ENDPOINT": cfg.XMPP.Endpoint,
		}
		if cfg.LLM.APIKey != "" {
			values["OPENAI_API_KEY"] = cfg.LLM.APIKey
		}
		if err := godotenv.Write(values, setupEnvFile); err != nil {
			return fmt.Errorf("write %s: %w", setupEnvFile, err)
		}
		if err := os.Chmod(setupEnvFile, 0600); err != nil {
			return fmt.Errorf("chmod %s: %w", setupEnvFile, err)
		}

		fmt.Println()
		fmt.Println("Bot user:", account.Email)
		fmt.Println("Bot JID: ", account.JID)
		fmt.Println("Room:    ", account.RoomJID)
		fmt.Println("Credentials written to", setupEnvFile)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}

// confirm asks a y/N question. Anything but y or yes is a no.
func confirm(scanner *bufio.Scanner, question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	if !scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	}
	return false
}
