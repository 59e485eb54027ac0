package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dDocs/cmd/doc"
	"github.com/ValentinKolb/dDocs/cmd/serve"
	"github.com/ValentinKolb/dDocs/lib/docstore"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ddocs",
		Short: "JSON document store on top of a GitHub repository",
		Long: fmt.Sprintf(`dDocs (v%s)

A JSON document store written in Go that persists every document as a file
in a GitHub repository, with a write-through cache, automatic backups and
optimistic concurrency based on the blob sha of each file.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dDocs",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dDocs v%s (document format %s)\n", Version, docstore.FormatVersion)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(doc.DocumentCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
