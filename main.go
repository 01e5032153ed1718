package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"memex/config"
	"memex/dagit"
	"memex/graph"
	"memex/memory"
	"memex/model"
	"memex/provider"
	"memex/storage"
	"memex/tools"
	"memex/ui"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

const memexLongDesc string = `memex is a terminal chat assistant backed by your knowledge graph.

It searches and writes to a memex server while it answers, and stores
every finished exchange back into the graph so the next session can
pick up where this one left off.

Configuration lives in ~/.config/memex/config.toml. Credentials are read
from OPENAI_API_KEY or ANTHROPIC_API_KEY (a .env file works too).`

const memexShortDesc string = "memex - chat with your knowledge graph"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "memex",
		Short:         memexShortDesc,
		Long:          memexLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			firstRun, _ := cmd.Flags().GetBool("first-run")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runChat(cfg, firstRun)
		},
	}

	cmd.PersistentFlags().String("provider", "", "LLM backend: openai, anthropic or ollama")
	cmd.PersistentFlags().String("model", "", "Model identifier for the selected provider")
	cmd.Flags().Bool("first-run", false, "Start with the onboarding greeting instead of loading memory")

	cmd.AddCommand(newModelsCmd(), newVersionCmd())
	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the configured provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := provider.FromConfig(cfg)
			if err != nil {
				return err
			}
			models, err := p.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing models: %w", err)
			}
			current := p.GetModel()
			for _, m := range models {
				marker := " "
				if m.Name == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m.Name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the memex version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "memex %s (%s)\n", Version, License)
		},
	}
}

// loadConfig resolves config.toml and the environment, then applies the
// command line flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.InitDebugLog(cfg.DataDir())

	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		cfg.Provider = p
		if cfg.DefaultModel == config.DefaultOpenAIModel && p != config.DefaultProvider {
			cfg.DefaultModel = ""
		}
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.DefaultModel = m
	}
	return cfg, nil
}

func runChat(cfg *config.Config, firstRun bool) error {
	p, err := provider.FromConfig(cfg)
	if err != nil {
		return showError("Provider Error", err.Error())
	}

	graphClient := graph.NewClient(cfg.MemexURL)
	var dagitClient *dagit.Client
	if cfg.DagitURL != "" {
		dagitClient = dagit.NewClient(cfg.DagitURL)
	}

	var opts []tools.Option
	toolLog, err := storage.NewToolLog(cfg.DataDir())
	if err != nil {
		// The chat works without the tool log; only the tools command needs it.
		if config.DebugLog != nil {
			config.DebugLog.Warnf("[main] tool log unavailable: %v", err)
		}
	} else {
		defer toolLog.Close()
		opts = append(opts, tools.WithRecorder(toolLog))
	}
	executor := tools.NewExecutor(graphClient, dagitClient, opts...)

	convCfg := model.ConversationConfig{
		Provider:     p,
		Tools:        executor,
		Ingester:     memory.NewIngester(graphClient),
		SystemPrompt: model.SystemPrompt(cfg.SystemPrompt, dagitClient != nil, firstRun),
		MaxTurns:     cfg.MaxTurns,
		MemoryLimit:  cfg.MemoryLimit,
	}
	if !firstRun {
		convCfg.Memory = memory.NewReconstructor(graphClient)
	}

	chatOpts := ui.ChatOptions{
		Conversation: model.NewConversation(convCfg),
		ProviderName: cfg.Provider,
		FirstRun:     firstRun,
	}
	// A nil *ToolLog must not become a non-nil interface.
	if toolLog != nil {
		chatOpts.ToolLog = toolLog
	}

	if config.DebugLog != nil {
		config.DebugLog.Infof("[main] starting chat: provider=%s model=%s memex=%s dagit=%v first_run=%v",
			cfg.Provider, p.GetModel(), cfg.MemexURL(), dagitClient != nil, firstRun)
	}

	program := tea.NewProgram(ui.NewChatView(chatOpts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}

func showError(title, message string) error {
	program := tea.NewProgram(ui.NewErrorModal(title, message), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("%s: %s", title, message)
	}
	return nil
}
