package root

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/cfpaths/cmd/analyze"
	"github.com/eoinhurrell/cfpaths/cmd/watch"
	"github.com/eoinhurrell/cfpaths/internal/report"
)

// NewRootCommand creates the root command for cfpaths
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfpaths",
		Short: "Resolve broken content fragment paths",
		Long: `cfpaths audits broken /content/dam/ content fragment references and
suggests a fix for each one: publish the existing content, fall back to
another locale, point at a similarly named sibling, or report it as missing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.PersistentFlags().Bool("verbose", false, "Debug logging, including every rule attempt")
	cmd.PersistentFlags().Bool("quiet", false, "Log errors only and print bare error messages; --verbose wins if both are set")
	cmd.PersistentFlags().String("config", "", "Config file (default: cfpaths.yaml in ., ~ or /etc/cfpaths)")

	cmd.AddCommand(analyze.NewAnalyzeCommand())
	cmd.AddCommand(watch.NewWatchCommand())
	cmd.AddCommand(newCompletionCommand())

	setupCustomCompletions(cmd)

	return cmd
}

// newCompletionCommand creates the completion command
func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  $ source <(cfpaths completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ cfpaths completion bash > /etc/bash_completion.d/cfpaths
  # macOS:
  $ cfpaths completion bash > /usr/local/etc/bash_completion.d/cfpaths

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ cfpaths completion zsh > "${fpath[1]}/_cfpaths"

  # You will need to start a new shell for this setup to take effect.

fish:

  $ cfpaths completion fish | source

  # To load completions for each session, execute once:
  $ cfpaths completion fish > ~/.config/fish/completions/cfpaths.fish

PowerShell:

  PS> cfpaths completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}

	return cmd
}

// setupCustomCompletions adds completion functions for file arguments and
// enumerated flags
func setupCustomCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("config", CompleteConfigFiles)

	for _, subCmd := range cmd.Commands() {
		switch subCmd.Name() {
		case "analyze", "watch":
			subCmd.ValidArgsFunction = CompleteBrokenPathFiles
			_ = subCmd.RegisterFlagCompletionFunc("broken-paths", CompleteBrokenPathFiles)
			_ = subCmd.RegisterFlagCompletionFunc("inventory", CompleteInventoryFiles)
			_ = subCmd.RegisterFlagCompletionFunc("format", CompleteOutputFormats)
			_ = subCmd.RegisterFlagCompletionFunc("locale-fallback", CompleteLocales)
		}
	}
}

// CompleteConfigFiles provides config file completion
func CompleteConfigFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}

// CompleteBrokenPathFiles provides completion for broken path lists
func CompleteBrokenPathFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"txt", "json", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}

// CompleteInventoryFiles provides completion for inventory sources
func CompleteInventoryFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml", "json", "db", "sqlite", "sqlite3"}, cobra.ShellCompDirectiveFilterFileExt
}

// CompleteOutputFormats provides completion for output format flags
func CompleteOutputFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return report.Formats(), cobra.ShellCompDirectiveNoFileComp
}

// CompleteLocales provides completion for common fallback locales
func CompleteLocales(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	locales := []string{"en", "en-US", "en-GB", "de", "de-DE", "fr", "fr-FR", "es", "es-ES", "it", "ja", "zh"}
	return locales, cobra.ShellCompDirectiveNoFileComp
}
