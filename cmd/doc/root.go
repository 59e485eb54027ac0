package doc

import (
	"context"
	"github.com/ValentinKolb/dDocs/cmd/util"
	"github.com/ValentinKolb/dDocs/lib/docstore"
	"github.com/spf13/cobra"
)

var (
	docStore *docstore.Store

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:                "doc",
		Short:              "Perform document store operations",
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: shutdownStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupStoreFlags(DocumentCommands)

	// Add subcommands
	DocumentCommands.AddCommand(getCmd)
	DocumentCommands.AddCommand(putCmd)
	DocumentCommands.AddCommand(delCmd)
	DocumentCommands.AddCommand(statsCmd)
	DocumentCommands.AddCommand(backupsCmd)
	DocumentCommands.AddCommand(restoreCmd)
	DocumentCommands.AddCommand(vacuumCmd)
	DocumentCommands.AddCommand(keysCmd)
}

// setupStore creates and initializes the document store
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	docStore, err = util.BuildStore()
	if err != nil {
		return err
	}
	return docStore.Init(context.Background())
}

// shutdownStore persists metadata and config after a command
func shutdownStore(_ *cobra.Command, _ []string) error {
	if docStore == nil {
		return nil
	}
	return util.Shutdown(docStore)
}
