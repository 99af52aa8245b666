package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/ashureev/agent-factory/internal/agents"
	"github.com/ashureev/agent-factory/internal/generator"
	"github.com/ashureev/agent-factory/internal/identity"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/ashureev/agent-factory/internal/store"
	"github.com/ashureev/agent-factory/internal/voice"
	"github.com/spf13/cobra"
)

const defaultDBPath = "./data/agent-factory.db"

// errSignedOut is returned by commands that need the dashboard session.
var errSignedOut = errors.New("no user is signed in to this store")

type rootOptions struct {
	dbPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Agent Factory command line",
		Long:          `agentctl generates agent personas and inspects the local agent factory store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	dbDefault := defaultDBPath
	if v := os.Getenv("DB_PATH"); v != "" {
		dbDefault = v
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", dbDefault, "path to the local store")

	root.AddCommand(
		newQuestionsCmd(),
		newGenerateCmd(opts),
		newVoicesCmd(),
		newAgentsCmd(opts),
	)
	return root
}

func newQuestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions [goal]",
		Short: "Print the interview questions for a goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := ""
			if len(args) == 1 {
				goal = args[0]
			}
			for i, q := range generator.GenerateQuestions(goal) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, q)
			}
			return nil
		},
	}
}

type generateOptions struct {
	goal      string
	tone      string
	expertise string
	language  string
	answers   []string
	voiceID   string
	catalog   string
	save      bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an agent persona from a goal",
		Long: `Generate an agent persona from a goal and the interview answers.

Examples:
  agentctl generate --goal "book demos" -a Acme -a "book a demo" -a Sam
  agentctl generate --goal "collect feedback" --tone warm --save`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := generator.GenerateConfig(opts.goal, generator.Options{
				Tone:      opts.tone,
				Expertise: opts.expertise,
				Language:  opts.language,
				Answers:   opts.answers,
			})
			if !opts.save {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}

			draft := cfg.Draft(opts.goal)
			if opts.voiceID != "" {
				catalog, err := voice.LoadCatalog(opts.catalog)
				if err != nil {
					return err
				}
				v, ok := catalog.Lookup(opts.voiceID)
				if !ok {
					return fmt.Errorf("unknown voice %q", opts.voiceID)
				}
				draft.VoiceID, draft.VoiceName = v.ID, v.Name
			}

			return withSession(cmd.Context(), root.dbPath, func(ctx context.Context, s *session) error {
				u, ok := s.identity.Current()
				if !ok {
					return errSignedOut
				}
				id, err := s.agents.Create(ctx, u.ID, draft)
				if err != nil {
					return err
				}
				a, _ := s.agents.Get(id)
				return writeJSON(cmd.OutOrStdout(), a)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.goal, "goal", "", "what the agent should achieve")
	f.StringVar(&opts.tone, "tone", "", "communication tone")
	f.StringVar(&opts.expertise, "expertise", "", "junior, mid-level, senior, executive or world-class")
	f.StringVar(&opts.language, "language", "", "preferred conversation language")
	f.StringArrayVarP(&opts.answers, "answer", "a", nil, "interview answer, in question order (repeatable)")
	f.StringVar(&opts.voiceID, "voice", "", "voice id for the saved agent")
	f.StringVar(&opts.catalog, "catalog", os.Getenv("VOICE_CATALOG_PATH"), "YAML voice catalog")
	f.BoolVar(&opts.save, "save", false, "store the agent for the signed-in user")
	return cmd
}

func newVoicesCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the available voices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := voice.LoadCatalog(catalogPath)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGENDER\tDESCRIPTION")
			for _, v := range catalog.List() {
				name := v.Name
				if v.ID == catalog.Default().ID {
					name += " (default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, name, v.Gender, v.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", os.Getenv("VOICE_CATALOG_PATH"), "YAML voice catalog")
	return cmd
}

func newAgentsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the signed-in user's agents",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), root.dbPath, func(_ context.Context, s *session) error {
				if _, ok := s.identity.Current(); !ok {
					return errSignedOut
				}
				all := s.agents.List()
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), all)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCALLS\tMESSAGES\tAUTONOMY")
				for _, a := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", a.ID, a.Name, a.Status, a.Calls, a.Messages, a.Autonomy)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(list)
	return cmd
}

// session is the dashboard state restored from the local store. Remote
// mirroring is off for CLI use.
type session struct {
	identity *identity.Manager
	agents   *agents.Store
}

func withSession(ctx context.Context, dbPath string, fn func(context.Context, *session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	local, err := store.NewSQLite(dbPath)
	if err != nil {
		return err
	}
	defer local.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	agentStore := agents.NewStore(local, remote.Disabled{}, nil, logger)
	mgr := identity.NewManager(local, remote.Disabled{}, nil, agentStore, logger)
	if err := mgr.Restore(ctx); err != nil {
		return err
	}
	return fn(ctx, &session{identity: mgr, agents: agentStore})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
