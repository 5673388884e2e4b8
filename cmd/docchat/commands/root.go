// ABOUTME: Root CLI command with global flags shared by all subcommands
// ABOUTME: Wires verbose/quiet/format flags and registers the command tree
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	format  string
)

const banner = `
███████╗  ██████╗  ██████╗ ██████╗ ██╗  ██╗ █████╗ ████████╗
██╔═══██╗██╔═══██╗██╔════╝██╔════╝ ██║  ██║██╔══██╗╚══██╔══╝
██║   ██║██║   ██║██║     ██║      ███████║███████║   ██║
██║   ██║██║   ██║██║     ██║      ██╔══██║██╔══██║   ██║
███████╔╝╚██████╔╝╚██████╗╚██████╗ ██║  ██║██║  ██║   ██║
╚══════╝  ╚═════╝  ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docchat",
		Short: "Chat with your documents",
		Long: banner + `
docchat answers questions over documents you upload. Documents are chunked,
embedded, and indexed per conversation; answers cite the passages they
are grounded on, and ungrounded answers are flagged.

Start by ingesting a document, then ask:
  docchat ingest --session work notes.md
  docchat ask --session work "what did we decide about the rollout?"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&format, "format", "auto", "Output format: auto, text, or json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewDocumentsCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
