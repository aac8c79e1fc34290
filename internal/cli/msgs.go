package cli

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort    = "Live terminal display for trees of running activities"
	MsgRunShort     = "Replay a pipeline script on the live display"
	MsgDemoShort    = "Replay the built-in demonstration pipeline"
	MsgLegendShort  = "Show the glyphs and colours used for each status"
	MsgConfigShort  = "Print the effective configuration as TOML"
	MsgVersionShort = "Print version information"
	MsgManShort     = "Generate the man page"

	// Flag descriptions
	MsgFlagVerbose  = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig   = "Config file (default is $XDG_CONFIG_HOME/beout/config.toml)"
	MsgFlagPlain    = "Append one line per change instead of redrawing frames"
	MsgFlagForceTTY = "Draw live frames even when output is not a terminal"
	MsgFlagNoColor  = "Disable colours"
	MsgFlagFrameMS  = "Repaint period in milliseconds (20-1000)"
	MsgFlagSummary  = "Print a one-line tally after the final frame"
	MsgFlagSpeed    = "Multiply step durations (0 replays instantly)"

	// Output
	MsgVersionFormat = "beout version %s\n  commit: %s\n  built:  %s\n"
	MsgConfigWarning = "# warning: %s\n"
)

// MsgRootLong is the root command description
const MsgRootLong = `beout draws a tree of activities (a build, a deploy, any multi-step job)
as a live, self-redrawing block at the bottom of the terminal. Each activity
shows a status glyph, its label, elapsed time and the last lines it logged.

When output is not a terminal, beout appends one line per status change.`

// MsgRunLong describes the script format
const MsgRunLong = `Replay a pipeline described in YAML:

  name: Build
  steps:
    - name: compile
      duration: 2s
      logs: [cc main.c]
    - name: test
      parallel: true
      steps:
        - {name: unit, duration: 1s}
        - {name: lint, fail: "3 warnings"}

The command exits with status 1 when a step fails.`

// MsgUsageTemplate is cobra's usage template with styled headings
const MsgUsageTemplate = `{{boldUpper "usage"}}:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

{{boldUpper "aliases"}}:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

{{boldUpper "examples"}}:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

{{boldUpper "commands"}}:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

{{boldUpper "flags"}}:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

{{boldUpper "global flags"}}:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
