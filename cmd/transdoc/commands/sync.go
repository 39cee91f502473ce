// ABOUTME: Sync commands for Charm cloud synchronization of the translation memory
// ABOUTME: Provides status, push, pull, wipe and keys management
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/charm"
	"github.com/harper/transdoc/internal/config"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization with Charm cloud.

transdoc can share its translation memory through a Charm KV database
authenticated by SSH keys. Push uploads records, review marks and the
correspondence index; pull merges them into the local memory without
overwriting anything already recorded.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncPushCmd())
	cmd.AddCommand(newSyncPullCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

// openCharm loads config and connects to the Charm KV database
func openCharm() (*config.Config, *charm.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := charm.NewClient(charm.ConfigFrom(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Charm: %w", err)
	}
	return cfg, client, nil
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := openCharm()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			out := cmd.OutOrStdout()
			id, err := client.ID()
			if err != nil {
				fmt.Fprintln(out, "Status: Not connected")
				fmt.Fprintln(out, "Run 'transdoc sync keys' to check your SSH keys")
				return nil
			}

			status, err := charm.RemoteStatus(client)
			if err != nil {
				return fmt.Errorf("reading remote status: %w", err)
			}

			if jsonOutput() {
				return printJSON(out, map[string]interface{}{
					"connected": true,
					"user_id":   id,
					"host":      client.Host(),
					"remote":    status,
				})
			}
			fmt.Fprintln(out, "Status: Connected")
			fmt.Fprintf(out, "User ID: %s\n", id)
			fmt.Fprintf(out, "Host: %s\n", client.Host())
			fmt.Fprintf(out, "Remote: %d record(s), %d review mark(s), index %t\n", status.Records, status.Reviewed, status.HasIndex)
			return nil
		},
	}
}

func newSyncPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload the local translation memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := openCharm()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := charm.Push(cmd.Context(), store, client)
			if err != nil {
				return fmt.Errorf("push failed: %w", err)
			}
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Pushed %d record(s) (%d unchanged), %d review mark(s), %d row(s)\n",
				report.Records, report.Unchanged, report.Reviewed, report.Rows)
			return nil
		},
	}
}

func newSyncPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge the remote translation memory into the local one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := openCharm()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := charm.Pull(cmd.Context(), store, client)
			if err != nil {
				return fmt.Errorf("pull failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Pulled %d record(s) (%d unchanged, %d rejected), %d row(s), %d conflict(s)\n",
				report.Records, report.Unchanged, report.Rejected, report.Rows, report.Conflicts)
			return nil
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete the synced translation memory from Charm",
		Long: `Delete every synced record, review mark and index snapshot from the
Charm KV database. The local translation memory is not touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "This will delete ALL synced translation memory data!")
				fmt.Fprintln(cmd.OutOrStdout(), "Run with --confirm to proceed")
				return nil
			}

			_, client, err := openCharm()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			deleted, err := charm.Wipe(client)
			if err != nil {
				return fmt.Errorf("failed to wipe data: %w", err)
			}
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d synced key(s)\n", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List authorized SSH keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := openCharm()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			keys, err := client.GetAuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to get authorized keys: %w", err)
			}

			if keys == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No authorized keys found")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Authorized SSH keys:")
			fmt.Fprintln(cmd.OutOrStdout(), keys)
			return nil
		},
	}
}
