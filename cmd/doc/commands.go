package doc

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/docstore"
	"github.com/ValentinKolb/dDocs/lib/keymap"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/spf13/cobra"
	"io"
	"os"
	"time"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the document of a key ({} if it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := docStore.Read(cmd.Context(), args[0])
			fmt.Println(doc.Indent())
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [key] [json]",
		Short: "Writes a document, use - to read it from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := []byte(args[1])
			if args[1] == "-" {
				var err error
				if value, err = io.ReadAll(os.Stdin); err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			}

			var opts []docstore.WriteOption
			if skip, _ := cmd.Flags().GetBool("skip-backup"); skip {
				opts = append(opts, docstore.WithSkipBackup())
			}
			if msg, _ := cmd.Flags().GetString("message"); msg != "" {
				cmd.SetContext(remote.WithMessage(cmd.Context(), msg))
			}

			if err := docStore.Write(cmd.Context(), key, remote.Document(value), opts...); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", keymap.Resolve(key))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := docStore.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", keymap.Resolve(args[0]))
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints the store statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := json.MarshalIndent(docStore.GetStats(cmd.Context()), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	backupsCmd = &cobra.Command{
		Use:   "backups [key]",
		Short: "Lists the backups of a document, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := docStore.Backups(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no backups")
				return nil
			}
			for _, r := range records {
				fmt.Printf("%s  %s  %d bytes\n", r.Time.Format(time.RFC3339), r.Name, r.Size)
			}
			return nil
		},
	}
	restoreCmd = &cobra.Command{
		Use:   "restore [key] [backup]",
		Short: "Restores a document from one of its backups",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := docStore.Restore(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("restored %s from %s\n", keymap.Resolve(args[0]), args[1])
			return nil
		},
	}
	vacuumCmd = &cobra.Command{
		Use:   "vacuum",
		Short: "Resyncs from the remote and removes orphaned local files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := docStore.Vacuum(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("vacuum successfully")
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Prints the command names and the documents they map to",
		Args:  cobra.NoArgs,
		// the key table is static, no store needed
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := keymap.Table()
			for _, command := range keymap.Commands() {
				fmt.Printf("%-14s %s\n", command, table[command])
			}
			return nil
		},
	}
)

func init() {
	putCmd.Flags().Bool("skip-backup", false, "Do not back up the previous version")
	putCmd.Flags().String("message", "", "Commit message (default: Create/Update <path>)")
}
