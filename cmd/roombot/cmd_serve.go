package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/roombot/internal/config"
	"github.com/user/roombot/internal/game"
	"github.com/user/roombot/internal/gateway"
	"github.com/user/roombot/internal/responder"
	"github.com/user/roombot/internal/tokens"
	"github.com/user/roombot/internal/types"
	"github.com/user/roombot/internal/xmpp"
	"github.com/user/roombot/pkg/llm"
	"github.com/user/roombot/pkg/llm/openai"
)

const pidFile = "roombot.pid"

var serveAgent string

func init() {
	serveCmd.Flags().StringVar(&serveAgent, "agent", "", "agent to run: responder or game (default from config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Join the room and run an agent",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFile)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// identityFromConfig builds the session identity. A bare local name in
// BOT_JID is completed with the configured domain.
func identityFromConfig(cfg *config.Config) (xmpp.Identity, error) {
	raw := cfg.XMPP.JID
	if !strings.Contains(raw, "@") {
		raw = raw + "@" + cfg.XMPP.Domain
	}
	jid, err := xmpp.ParseJID(raw)
	if err != nil {
		return xmpp.Identity{}, fmt.Errorf("parse bot jid: %w", err)
	}
	if jid.Resource == "" {
		jid = jid.WithResource(cfg.XMPP.Resource)
	}
	room, err := xmpp.ParseJID(cfg.XMPP.Room)
	if err != nil {
		return xmpp.Identity{}, fmt.Errorf("parse room jid: %w", err)
	}
	return xmpp.Identity{
		JID:         jid,
		Password:    cfg.XMPP.Password,
		Room:        room.Bare(),
		DisplayName: cfg.XMPP.DisplayName,
		RoleLabel:   cfg.XMPP.RoleLabel,
	}, nil
}

// buildAgent constructs the agent named by kind on top of sender.
func buildAgent(kind string, cfg *config.Config, sender types.Sender, name string) (types.Agent, error) {
	switch kind {
	case config.AgentResponder:
		provider := openai.New(&llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		rcfg := responder.Config{
			Name:            name,
			SystemPrompt:    cfg.LLM.SystemPrompt,
			Capacity:        cfg.LLM.HistorySize,
			MaxPromptTokens: cfg.LLM.MaxPromptTokens,
		}
		if counter, err := tokens.New(cfg.LLM.Model); err != nil {
			slog.Warn("token counting and prompt ceiling disabled", "model", cfg.LLM.Model, "error", err)
		} else {
			rcfg.Counter = counter
		}
		return responder.New(provider, sender, rcfg), nil
	case config.AgentGame:
		return game.New(sender), nil
	default:
		return nil, fmt.Errorf("unknown agent %q", kind)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	kind := cfg.Agent
	if serveAgent != "" {
		kind = serveAgent
	}
	if err := cfg.Validate(kind); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	id, err := identityFromConfig(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := xmpp.Dial(ctx, cfg.XMPP.Endpoint, id)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.Connect(ctx); err != nil {
		return err
	}

	name := id.DisplayName
	if name == "" {
		name = id.JID.Local
	}
	agent, err := buildAgent(kind, cfg, sess, name)
	if err != nil {
		return err
	}

	gw := gateway.New(sess, agent)

	// SIGHUP re-execs the binary in place.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			sess.Close()
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				stop()
			}
		}
	}()

	slog.Info("roombot started",
		"agent", kind,
		"jid", id.JID.String(),
		"room_jid", id.Room.String(),
		"endpoint", cfg.XMPP.Endpoint,
		"pid_file", pidPath,
	)

	if err := gw.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutting down")
	return nil
}
