package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage enrolled identities",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all enrolled identities",
	RunE:  runUsersList,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Remove an identity and its embeddings",
	Long: `Removes an identity and all its reference embeddings. Historical
attendance sessions are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersDelete,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDeleteCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	identities, err := store.ListIdentities(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	if len(identities) == 0 {
		fmt.Println("No identities enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMBEDDINGS\tREGISTERED")
	for _, identity := range identities {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n",
			identity.ID, identity.Name, len(identity.Embeddings),
			identity.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	name := facematch.NormalizeIdentityName(args[0])

	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RemoveIdentity(context.Background(), name); err != nil {
		if errors.Is(err, database.ErrIdentityNotFound) {
			return fmt.Errorf("identity %q is not enrolled", name)
		}
		return fmt.Errorf("failed to remove identity: %w", err)
	}

	// Drop the cached reference photo too, if there is one.
	if cfg.FacesDir != "" {
		path := filepath.Join(cfg.FacesDir, name+".jpg")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: could not remove cached face image: %v\n", err)
		}
	}

	fmt.Printf("Removed %s (sessions kept)\n", name)
	return nil
}
