// Package cli implements the beout command line.
package cli

import (
	"embed"
	"fmt"
	"io"
	iofs "io/fs"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/beout/internal/topics"
	"github.com/arthur-debert/beout/internal/version"
	"github.com/arthur-debert/beout/pkg/config"
	"github.com/arthur-debert/beout/pkg/logging"
	"github.com/arthur-debert/beout/pkg/terminal"
)

//go:embed help/*.md
var helpFiles embed.FS

// globals holds the persistent flags shared by every command
type globals struct {
	fs         afero.Fs
	verbosity  int
	configPath string
	plain      bool
	forceTTY   bool
	noColor    bool
	frameMS    int
	summary    bool
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	initTemplateFormatting()

	g := &globals{fs: fs}

	rootCmd := &cobra.Command{
		Use:     "beout",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Console logs share the terminal with live frames, so they
			// are only enabled on request.
			if g.verbosity > 0 {
				logging.SetupLogger(g.verbosity, cmd.ErrOrStderr())
			} else {
				logging.SetupLogger(g.verbosity, nil)
			}
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&g.verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringVar(&g.configPath, "config", "", MsgFlagConfig)
	flags.BoolVar(&g.plain, "plain", false, MsgFlagPlain)
	flags.BoolVar(&g.forceTTY, "force-tty", false, MsgFlagForceTTY)
	flags.BoolVar(&g.noColor, "no-color", false, MsgFlagNoColor)
	flags.IntVar(&g.frameMS, "frame-ms", config.DefaultFrameMS, MsgFlagFrameMS)
	flags.BoolVar(&g.summary, "summary", false, MsgFlagSummary)

	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newDemoCmd(g))
	rootCmd.AddCommand(newLegendCmd(g))
	rootCmd.AddCommand(newConfigCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newManCmd())

	help, err := iofs.Sub(helpFiles, "help")
	if err == nil {
		if tm, err := topics.Load(help); err == nil {
			tm.Install(rootCmd, g.markdownRenderer)
		}
	}

	return rootCmd
}

// markdownRenderer styles markdown when the command writes to a colour
// terminal and keeps it plain otherwise.
func (g *globals) markdownRenderer(cmd *cobra.Command) topics.Renderer {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		cfg = config.Default()
	}
	return rendererFor(cmd.OutOrStdout(), cfg)
}

func rendererFor(w io.Writer, cfg *config.Config) topics.Renderer {
	term := terminal.Detect(w, cfg)
	return topics.GlamourRenderer{Styled: term.IsTTY() && term.Color(), Width: term.Width()}
}

// loadConfig resolves the configuration with the flags the user actually
// set layered on top.
func (g *globals) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := map[string]interface{}{}
	flags := cmd.Flags()
	if flags.Changed("plain") {
		overrides["plain"] = g.plain
	}
	if flags.Changed("force-tty") {
		overrides["force_tty"] = g.forceTTY
	}
	if flags.Changed("no-color") {
		overrides["no_color"] = g.noColor
	}
	if flags.Changed("frame-ms") {
		overrides["frame_ms"] = g.frameMS
	}
	if flags.Changed("summary") {
		overrides["summary"] = g.summary
	}

	cfg, err := config.Load(g.configPath, overrides)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("cli.config")
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}
	return cfg, nil
}
