// Package cli provides the strategyctl command-line interface. It runs the
// generation tasks against a wizard input file and manages saved strategies.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"product-strategy-gateway/internal/ai"
	"product-strategy-gateway/internal/config"
	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/pkg/types"
)

// Version of the CLI
const Version = "1.0.0"

// Options customize how the CLI is built
type Options struct {
	// Transport replaces the configured model transport
	Transport ai.Transport
	// Config replaces configuration loaded from the environment
	Config *config.Config
	Out    io.Writer
	Err    io.Writer
}

// CLI represents the command-line interface
type CLI struct {
	RootCmd *cobra.Command

	opts         Options
	cfg          *config.Config
	gateway      *gateway.Gateway
	logger       logging.Logger
	outputFormat string
	mock         bool
	verbose      bool
	timeout      time.Duration
}

// New creates the CLI with all commands
func New(opts Options) *CLI {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	c := &CLI{opts: opts, logger: logging.NewNoOpLogger()}
	c.setupRootCommand()
	c.setupCommands()
	return c
}

// Execute runs the CLI
func (c *CLI) Execute() error {
	return c.RootCmd.Execute()
}

func (c *CLI) setupRootCommand() {
	c.RootCmd = &cobra.Command{
		Use:   "strategyctl",
		Short: "Product strategy gateway CLI",
		Long: `strategyctl runs the product strategy generation tasks against a wizard
input file and manages the strategies saved in the gateway database.

Input files are YAML documents shaped like the wizard input: productDescription,
idealUser, userEndgame, challenges, solutions, selectedModel, packages and userJourney.`,
		Version:           Version,
		PersistentPreRunE: c.initialize,
		SilenceUsage:      true,
	}
	c.RootCmd.SetOut(c.opts.Out)
	c.RootCmd.SetErr(c.opts.Err)

	flags := c.RootCmd.PersistentFlags()
	flags.StringVarP(&c.outputFormat, "output", "o", "table", "Output format (table, json)")
	flags.BoolVar(&c.mock, "mock", false, "Answer with canned sample replies instead of calling the model")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Verbose output for debugging")
	flags.DurationVar(&c.timeout, "timeout", 90*time.Second, "Timeout of one generation")
}

func (c *CLI) setupCommands() {
	c.RootCmd.AddCommand(
		c.createAnalyzeCommand(),
		c.createSuggestCommand(),
		c.createFeedbackCommand(),
		c.createExportCommand(),
		c.createStrategiesCommand(),
	)
}

// initialize loads configuration and builds the gateway before any command runs
func (c *CLI) initialize(cmd *cobra.Command, _ []string) error {
	cfg := c.opts.Config
	if cfg == nil {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}
	c.cfg = cfg

	if c.verbose {
		c.logger = logging.New(logging.Options{Level: logging.DEBUG, Output: c.opts.Err, Color: true})
	}

	transport := c.opts.Transport
	switch {
	case transport != nil:
	case c.mock:
		mock := ai.NewMockTransport()
		mock.Responder = gateway.SampleResponder()
		transport = mock
	default:
		transport = ai.NewClient(ai.ClientConfig{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout(),
		}, c.logger)
	}

	c.gateway = gateway.New(transport, gateway.Config{
		Model:            cfg.AI.Model,
		APIKeyConfigured: c.mock || c.opts.Transport != nil || cfg.AI.KeyConfigured(),
	}, c.logger)
	return nil
}

func (c *CLI) generationContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *CLI) formatter(cmd *cobra.Command) Formatter {
	if strings.EqualFold(c.outputFormat, "json") {
		return NewJSONFormatter(cmd.OutOrStdout())
	}
	return NewTableFormatter(cmd.OutOrStdout())
}

// loadInput reads a wizard input YAML (or JSON) file and validates it
func loadInput(path string) (*types.AnalysisInput, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied input file
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var input types.AnalysisInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input file %s: %w", path, err)
	}
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input file %s: %w", path, err)
	}
	return &input, nil
}
