package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/status"
	"github.com/arthur-debert/beout/pkg/theme"
)

var statusMeaning = map[status.Status]string{
	status.Pending:   "created, not started yet",
	status.Running:   "in progress; the glyph spins",
	status.Succeeded: "finished without error",
	status.Failed:    "finished with an error, or cut short by one",
	status.Skipped:   "deliberately not run",
}

func newLegendCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "legend",
		Short: MsgLegendShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			th := theme.Default()
			if cfg.Theme != "" {
				if th, err = theme.Load(cfg.Theme); err != nil {
					return errors.Wrap(err, errors.ErrConfigLoad, "failed to load theme").
						WithDetail("path", cfg.Theme)
				}
			}

			rendered, err := rendererFor(cmd.OutOrStdout(), cfg).Render(legendMarkdown(th), ".md")
			if err != nil {
				return errors.Wrap(err, errors.ErrInternal, "failed to render legend")
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

// legendMarkdown describes every status of th as a markdown table
func legendMarkdown(th theme.Theme) string {
	var b strings.Builder
	b.WriteString("# Status legend\n\n")
	b.WriteString("| Glyph | Status | Colour | Meaning |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, st := range status.All {
		color := th.StatusColors[st]
		if color == "" {
			color = "none"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", th.Glyph(st, 0), st, color, statusMeaning[st])
	}
	fmt.Fprintf(&b, "\nRunning activities cycle through `%s`.\n", strings.Join(th.Spinner, " "))
	fmt.Fprintf(&b, "Log lines, elapsed time and time left are drawn %s.\n", th.ElementColors[theme.ElementLog])
	return b.String()
}
