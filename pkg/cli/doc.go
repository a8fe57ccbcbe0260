/*
Package cli provides command-line helpers shared by the chronicle commands.

Output Formatting:

Commands print their reports as text or JSON:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}

The text formatter uses the value's String method when it has one.

Signal Handling:

Long running commands stop on SIGINT or SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ConfigError reports bad settings or flags by field name. ConfigErrorFrom
keeps the field names of config.ValidationError and
removaltime.StrategyError. CommandError wraps a failed retention command and
tells the user when a concurrent change makes a re-run safe. ExitCode maps
all of them to the process exit code:

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
*/
package cli
