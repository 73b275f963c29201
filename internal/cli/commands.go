package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"product-strategy-gateway/internal/export"
	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/storage"
	"product-strategy-gateway/internal/suggestions"
	"product-strategy-gateway/pkg/types"
)

func (c *CLI) createAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <input.yaml>",
		Short: "Generate the DEEP analysis of a wizard input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := loadInput(args[0])
			if err != nil {
				return err
			}
			if missing := gateway.MissingRequiredFields(*input); len(missing) > 0 {
				return fmt.Errorf("input is incomplete: %s", strings.Join(missing, ", "))
			}

			ctx, cancel := c.generationContext(cmd)
			defer cancel()

			result, err := c.gateway.GenerateAnalysis(ctx, *input)
			if err != nil {
				return err
			}
			return c.formatter(cmd).FormatAnalysis(result)
		},
	}
}

func (c *CLI) createSuggestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest wizard content from a wizard input",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "model <input.yaml>",
			Short: "Recommend a monetization model",
			Args:  cobra.ExactArgs(1),
			RunE: c.withInput(func(ctx context.Context, cmd *cobra.Command, input *types.AnalysisInput) error {
				suggestion, err := c.gateway.SuggestModel(ctx, gateway.ModelSuggestionRequest{
					ProductDescription: input.ProductDescription,
					IdealUser:          input.IdealUser,
					Outcomes:           input.UserEndgame,
				})
				if err != nil {
					return err
				}
				return c.formatter(cmd).FormatModelSuggestion(suggestion)
			}),
		},
		c.createSuggestChallengesCommand(),
		&cobra.Command{
			Use:   "solutions <input.yaml>",
			Short: "Suggest solutions for every challenge of the input",
			Args:  cobra.ExactArgs(1),
			RunE: c.withInput(func(ctx context.Context, cmd *cobra.Command, input *types.AnalysisInput) error {
				bulk := suggestions.NewBulk(c.gateway, c.logger, suggestions.WithProgress(func(p suggestions.Progress) {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] challenge %s processed\n", p.Processed, p.Total, p.Current)
				}))
				result := bulk.SolutionsForChallenges(ctx, input.ProductDescription, input.Challenges, input.Solutions)
				for _, e := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "challenge %s: %s\n", e.ChallengeID, e.Message)
				}
				return c.formatter(cmd).FormatSolutions(result.Solutions)
			}),
		},
		&cobra.Command{
			Use:   "features <input.yaml>",
			Short: "Suggest package features and a pricing strategy",
			Args:  cobra.ExactArgs(1),
			RunE: c.withInput(func(ctx context.Context, cmd *cobra.Command, input *types.AnalysisInput) error {
				suggestion, err := c.gateway.SuggestFeatures(ctx, gateway.PackageSuggestionRequest{
					ProductDescription: input.ProductDescription,
					IdealUser:          input.IdealUser,
					SelectedModel:      input.SelectedModel,
					Challenges:         input.Challenges,
					Solutions:          input.Solutions,
					Existing:           input.Packages.Features,
				})
				if err != nil {
					return err
				}
				return c.formatter(cmd).FormatPackageSuggestion(suggestion)
			}),
		},
		&cobra.Command{
			Use:   "description",
			Short: "Write a product description from a conversation read on stdin (one utterance per line)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				transcript, err := readTranscript(cmd)
				if err != nil {
					return err
				}
				ctx, cancel := c.generationContext(cmd)
				defer cancel()

				description, err := c.gateway.DescribeFromChat(ctx, gateway.ChatDescriptionRequest{Transcript: transcript})
				if err != nil {
					return err
				}
				return c.formatter(cmd).FormatChatDescription(description)
			},
		},
	)
	return cmd
}

func (c *CLI) createSuggestChallengesCommand() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "challenges <input.yaml>",
		Short: "Suggest user challenges",
		Args:  cobra.ExactArgs(1),
		RunE: c.withInput(func(ctx context.Context, cmd *cobra.Command, input *types.AnalysisInput) error {
			challenges, err := c.gateway.SuggestChallenges(ctx, gateway.ChallengeSuggestionRequest{
				ProductDescription: input.ProductDescription,
				IdealUser:          input.IdealUser,
				Outcomes:           input.UserEndgame,
				Level:              types.Level(level),
				Existing:           input.Challenges,
			})
			if err != nil {
				return err
			}
			return c.formatter(cmd).FormatChallenges(challenges)
		}),
	}
	cmd.Flags().StringVar(&level, "level", "", "Only suggest challenges of one level (beginner, intermediate, advanced)")
	return cmd
}

func (c *CLI) createFeedbackCommand() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "feedback <text>",
		Short: "Critique wizard text with span-anchored feedback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			ctx, cancel := c.generationContext(cmd)
			defer cancel()

			items, err := c.gateway.AnalyzeText(ctx, gateway.FeedbackRequest{
				Target: types.FeedbackTarget(target),
				Text:   text,
			})
			if err != nil {
				return err
			}
			return c.formatter(cmd).FormatFeedback(text, items)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", string(types.TargetProductDescription),
		"Wizard field the text belongs to (productDescription, idealUser, userEndgame, challenge, solution)")
	return cmd
}

func (c *CLI) createExportCommand() *cobra.Command {
	var (
		format  string
		title   string
		analyze bool
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export <input.yaml>",
		Short: "Render a wizard input as a markdown or HTML strategy document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			input, err := loadInput(args[0])
			if err != nil {
				return err
			}

			var result *types.Analysis
			if analyze {
				ctx, cancel := c.generationContext(cmd)
				defer cancel()
				if result, err = c.gateway.GenerateAnalysis(ctx, *input); err != nil {
					return err
				}
			}

			body, err := export.NewExporter().Render(types.StrategyFromInput(title, input, result), f)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(outPath, body, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Document format (md, html)")
	cmd.Flags().StringVar(&title, "title", "Product strategy", "Document title")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Generate the analysis and include it in the document")
	cmd.Flags().StringVar(&outPath, "out", "", "Write to a file instead of stdout")
	return cmd
}

func (c *CLI) createStrategiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Inspect strategies saved in the gateway database",
	}

	var filters storage.StrategyFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved strategies, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRepository(cmd, func(ctx context.Context, repo *storage.StrategyRepository) error {
				strategies, err := repo.List(ctx, filters)
				if err != nil {
					return err
				}
				return c.formatter(cmd).FormatStrategies(strategies)
			})
		},
	}
	list.Flags().BoolVar(&filters.PublicOnly, "public", false, "Only public strategies")
	list.Flags().StringVar(&filters.Search, "search", "", "Search titles and descriptions")
	list.Flags().IntVar(&filters.Limit, "limit", 20, "Maximum number of strategies")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Render one saved strategy as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRepository(cmd, func(ctx context.Context, repo *storage.StrategyRepository) error {
				strategy, err := repo.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				body, err := export.NewExporter().Render(strategy, export.FormatMarkdown)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(body)
				return err
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

// withInput loads the input file named by the first argument and runs fn under the
// generation timeout
func (c *CLI) withInput(fn func(ctx context.Context, cmd *cobra.Command, input *types.AnalysisInput) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		input, err := loadInput(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := c.generationContext(cmd)
		defer cancel()
		return fn(ctx, cmd, input)
	}
}

// withRepository opens the configured strategy database for the duration of fn
func (c *CLI) withRepository(cmd *cobra.Command, fn func(ctx context.Context, repo *storage.StrategyRepository) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	dialect := storage.Dialect(c.cfg.Storage.Driver)
	db, err := storage.Open(ctx, dialect, c.cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	repo := storage.NewStrategyRepository(db, dialect)
	if _, err := repo.Migrate(ctx); err != nil {
		return err
	}
	return fn(ctx, repo)
}

// readTranscript reads "role: text" lines; lines without a role are from the user
func readTranscript(cmd *cobra.Command) ([]gateway.ChatTurn, error) {
	var turns []gateway.ChatTurn
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		turn := gateway.ChatTurn{Role: "user", Text: line}
		if role, text, ok := strings.Cut(line, ":"); ok && (role == "user" || role == "assistant") {
			turn = gateway.ChatTurn{Role: role, Text: strings.TrimSpace(text)}
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("transcript is empty")
	}
	return turns, nil
}
