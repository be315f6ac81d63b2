package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/cfpaths/internal/errors"
)

// HandleError processes errors consistently across all commands
func HandleError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}

	cmd.PrintErrln(FormatError(cmd, err))
	os.Exit(errors.ExitCode(err))
}

// FormatError renders err according to the command's verbosity flags
func FormatError(cmd *cobra.Command, err error) string {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	return errors.NewErrorHandler(verbose, quiet).Handle(err)
}
