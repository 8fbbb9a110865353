package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mindful-app/realtime-service/internal/database"
	"github.com/spf13/cobra"
)

// maintenanceTask is a one-off job run through "command <name> [args]".
type maintenanceTask struct {
	summary string
	run     func(cmd *cobra.Command, args []string) error
}

var maintenanceTasks = map[string]maintenanceTask{
	"migrate": {
		summary: "apply pending users/sessions/follows/achievements migrations",
		run:     runMigrateUp,
	},
	"migrate-create": {
		summary: "scaffold the next numbered up/down pair in database/migrations",
		run:     runMigrateCreate,
	},
}

var commandCmd = &cobra.Command{
	Use:   "command [task] [args]",
	Short: "Run a one-off maintenance task for the realtime schema",
	Long: `Maintenance tasks for the realtime service database.

  migrate                  apply pending migrations from database/migrations
  migrate-create <name>    add 00000N_<name>.up.sql and .down.sql after the highest version`,
	RunE: runCommand,
}

func init() {
	rootCmd.AddCommand(commandCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		names := make([]string, 0, len(maintenanceTasks))
		for name := range maintenanceTasks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", name, maintenanceTasks[name].summary)
		}
		return nil
	}
	task, ok := maintenanceTasks[args[0]]
	if !ok {
		return fmt.Errorf("unknown task %q", args[0])
	}
	return task.run(cmd, args[1:])
}

func runMigrateCreate(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, "_")
	if name == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Migration name: ")
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &name)
	}
	base, err := database.CreateMigration(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created database/migrations/%s.{up,down}.sql\n", base)
	return nil
}
