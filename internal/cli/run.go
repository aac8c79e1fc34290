package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/beout/pkg/display"
	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/logging"
	"github.com/arthur-debert/beout/pkg/script"
)

func newRunCmd(g *globals) *cobra.Command {
	var speed float64

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: MsgRunShort,
		Long:  MsgRunLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := script.Load(g.fs, args[0])
			if err != nil {
				return err
			}
			return g.play(cmd, p, speed)
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, MsgFlagSpeed)
	return cmd
}

func newDemoCmd(g *globals) *cobra.Command {
	var speed float64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: MsgDemoShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.play(cmd, script.Demo(), speed)
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, MsgFlagSpeed)
	return cmd
}

// play replays p on a session drawn on standard error. Interrupting
// the process fails the open activities before exiting.
func (g *globals) play(cmd *cobra.Command, p *script.Pipeline, speed float64) error {
	logger := logging.GetLogger("cli.play")
	if speed < 0 {
		return errors.Newf(errors.ErrInvalidInput, "speed must not be negative, got %g", speed)
	}
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := display.Open(ctx, p.Name,
		display.WithConfig(cfg),
		display.WithOutput(cmd.ErrOrStderr()),
		display.WithLogger(logging.GetLogger("display")),
		display.WithRootAutoClose(p.RootAutoClose()),
	)
	if err != nil {
		return err
	}

	logger.Info().
		Str("pipeline", p.Name).
		Int("steps", p.Count()).
		Float64("speed", speed).
		Msg("Playing pipeline")

	playErr := script.Play(ctx, s.Root(), p, script.Options{Scale: speed, Banner: s.Banner})
	closeErr := s.Close(playErr)

	if derr, ok := <-s.Diagnostics(); ok {
		logger.Warn().Err(derr).Msg("Display fell back to plain output")
	}

	switch {
	case ctx.Err() != nil:
		// The display already shows the interrupted activities as failed
		return errors.Wrap(ctx.Err(), errors.ErrStepFailed, "interrupted")
	case playErr != nil:
		return playErr
	default:
		return closeErr
	}
}
