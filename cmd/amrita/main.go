// Command amrita is the reference CLI over the AmritaCore runtime:
// process config, preset management, session lifecycle, and driving a
// single chat turn from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AmritaBot/AmritaCore/internal/app"
	"github.com/AmritaBot/AmritaCore/internal/logging"
	"github.com/AmritaBot/AmritaCore/internal/turn"
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

var (
	logLevel   string
	configPath string
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amrita",
		Short:        "AmritaCore — the runtime core of an agent reasoning/tool-use loop",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML AmritaConfig file")

	root.AddCommand(
		buildConfigCmd(),
		buildPresetCmd(),
		buildSessionCmd(),
		buildChatCmd(),
	)
	return root
}

func newApp() *app.App {
	logger := logging.New(logging.Config{Level: logLevel})
	a := app.New(logger)
	a.Init()
	if configPath != "" {
		if err := a.Config.LoadYAML(configPath); err != nil {
			slog.Warn("amrita: failed to load config, using defaults", "path", configPath, "error", err)
			a.SetConfig(types.DefaultAmritaConfig())
		}
	} else {
		a.SetConfig(types.DefaultAmritaConfig())
	}
	return a
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect the process configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current AmritaConfig as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			cfg, err := a.GetConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	})
	return cmd
}

func buildPresetCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "preset", Short: "Manage model presets"}

	var (
		name, model, baseURL, apiKey, protocol string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a model preset",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			a.Presets.Add(types.ModelPreset{
				Name: name, Model: model, BaseURL: baseURL, APIKey: apiKey, Protocol: protocol,
			})
			fmt.Println("preset registered:", name)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "preset name")
	add.Flags().StringVar(&model, "model", "", "model identifier")
	add.Flags().StringVar(&baseURL, "base-url", "", "API base URL")
	add.Flags().StringVar(&apiKey, "api-key", "", "API key")
	add.Flags().StringVar(&protocol, "protocol", "openai-compatible", "adapter protocol tag")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("model")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered preset names",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			for _, n := range a.Presets.Names() {
				fmt.Println(n)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func buildSessionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Manage sessions"}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new session and print its ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			cfg, err := a.GetConfig()
			if err != nil {
				return err
			}
			fmt.Println(a.Sessions.New(cfg))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List live session IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			for _, id := range a.Sessions.List() {
				fmt.Println(id)
			}
			return nil
		},
	}

	var dropID string
	drop := &cobra.Command{
		Use:   "drop",
		Short: "Drop a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			a.Sessions.Drop(dropID)
			return nil
		},
	}
	drop.Flags().StringVar(&dropID, "id", "", "session ID to drop")
	_ = drop.MarkFlagRequired("id")

	cmd.AddCommand(newCmd, list, drop)
	return cmd
}

func buildChatCmd() *cobra.Command {
	var sessionID, input, presetName string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a single chat turn and print the final response",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			cfg, err := a.GetConfig()
			if err != nil {
				return err
			}

			var presetOverride *types.ModelPreset
			if presetName != "" {
				p, err := a.Presets.Get(presetName)
				if err != nil {
					return err
				}
				presetOverride = &p
			}

			engine, err := a.NewChatTurn(turn.Options{
				SessionID:         sessionID,
				UserInput:         input,
				Preset:            presetOverride,
				AutoCreateSession: true,
				Config:            &cfg,
			})
			if err != nil {
				return err
			}

			engine.Begin(context.Background())
			text, err := engine.FullResponse()
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "cli", "session ID")
	cmd.Flags().StringVar(&input, "message", "", "user message")
	cmd.Flags().StringVar(&presetName, "preset", "", "preset name override")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
