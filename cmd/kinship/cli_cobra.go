package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ameling/kinship/pkg/relationship"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "kinship",
		Short: "Companion relationship and progression engine",
		Long: strings.TrimSpace(`kinship tracks user-companion relationships: affection scoring with
diminishing returns and inactivity decay, gift effects, XP/level/tier
progression, daily engagement streaks, and achievements.

Run the HTTP gateway with "kinship serve", or use the local commands to
inspect and mutate state directly.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newStateCommand())
	root.AddCommand(newApplyCommand())
	root.AddCommand(newAchievementsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newOnboardCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.kinship config",
		Long:    "Create a default configuration file for a new kinship installation.",
		Example: "  kinship onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default ~/.kinship/config.json)")
	return cmd
}

func newServeCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP gateway and maintenance sweep",
		Long:    "Start the relationship engine, SQLite storage, notification bus, scheduled maintenance sweep, and HTTP API.",
		Example: "  kinship serve --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd(configPath, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default ~/.kinship/config.json)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newStateCommand() *cobra.Command {
	var (
		configPath string
		userID     string
		companion  string
	)

	cmd := &cobra.Command{
		Use:     "state",
		Short:   "Print the stored state for one pair",
		Example: "  kinship state --user alice --companion luna",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || companion == "" {
				return fmt.Errorf("--user and --companion are required")
			}
			return stateCmd(configPath, userID, companion)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default ~/.kinship/config.json)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVar(&companion, "companion", "", "Companion id")
	return cmd
}

func newApplyCommand() *cobra.Command {
	var (
		configPath string
		userID     string
		companion  string
		kind       string
		at         string
		giftID     string
		sceneID    string
		effect     string
		magnitude  float64
		duration   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply one interaction event locally",
		Long:  "Run one event through the engine against local storage, bypassing the HTTP gateway. Useful for testing configuration changes.",
		Example: strings.Join([]string{
			"  kinship apply --user alice --companion luna --kind message",
			"  kinship apply --user alice --companion luna --kind gift --gift-id rose --effect affection_multiplier --magnitude 2 --duration 1h",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || companion == "" {
				return fmt.Errorf("--user and --companion are required")
			}

			when := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				when = parsed
			}

			ev := relationship.Event{Kind: relationship.EventKind(kind), At: when}
			switch ev.Kind {
			case relationship.EventGift:
				payload := &relationship.GiftPayload{GiftID: giftID}
				if effect != "" {
					payload.Grant = &relationship.EffectGrant{
						Type:      relationship.EffectType(effect),
						Magnitude: magnitude,
						Duration:  duration,
					}
				}
				ev.Gift = payload
			case relationship.EventARExperience:
				ev.AR = &relationship.ARPayload{SceneID: sceneID}
			}

			pair := relationship.PairID{UserID: userID, CompanionID: companion}
			return applyCmd(configPath, pair, ev)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default ~/.kinship/config.json)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVar(&companion, "companion", "", "Companion id")
	cmd.Flags().StringVarP(&kind, "kind", "k", "message", "Event kind: message, gift, voice_call, video_call, ar_experience")
	cmd.Flags().StringVar(&at, "at", "", "Event time, RFC3339 (default now)")
	cmd.Flags().StringVar(&giftID, "gift-id", "", "Gift id for gift events")
	cmd.Flags().StringVar(&sceneID, "scene-id", "", "Scene id for AR events")
	cmd.Flags().StringVar(&effect, "effect", "", "Gift effect type: affection_multiplier, affection_flat_bonus, mood_boost")
	cmd.Flags().Float64Var(&magnitude, "magnitude", 0, "Gift effect magnitude")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Gift effect duration (default from config)")

	return cmd
}

func newAchievementsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "achievements",
		Short:   "List the achievement registry",
		Example: "  kinship achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return achievementsCmd()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  kinship version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
