package cli

import (
	"fmt"
	"time"

	"github.com/BartekS5/astramigrate/internal/etl"
	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/spf13/cobra"
)

// ConnectionFlags are the destination connection settings given on the
// command line. Empty values fall back to <FAMILY>_* environment variables.
type ConnectionFlags struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string
}

func (f *ConnectionFlags) config() models.ConnectionConfig {
	return models.ConnectionConfig{
		Host:     f.Host,
		Port:     f.Port,
		Username: f.User,
		Password: f.Password,
		Database: f.Database,
		Schema:   f.Schema,
	}
}

func (f *ConnectionFlags) bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.Host, "host", "", "Destination host")
	cmd.PersistentFlags().IntVar(&f.Port, "port", 0, "Destination port (family default when unset)")
	cmd.PersistentFlags().StringVarP(&f.User, "user", "u", "", "Destination user")
	cmd.PersistentFlags().StringVarP(&f.Password, "password", "p", "", "Destination password")
	cmd.PersistentFlags().StringVarP(&f.Database, "database", "d", "", "Destination database")
	cmd.PersistentFlags().StringVar(&f.Schema, "schema", "", "Destination schema qualifier")
}

type MigrateOptions struct {
	Conn        ConnectionFlags
	Maps        []string
	MappingFile string
	JobFile     string
	Limit       int
	Timeout     time.Duration
	DryRun      bool
	AutoCreate  bool
	QueryLog    bool
	NoProgress  bool
}

func NewMigrateCmd() *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy mapped tables into one destination family",
	}

	opts.Conn.bind(cmd)
	cmd.PersistentFlags().StringArrayVarP(&opts.Maps, "map", "m", nil, "Table mapping source=target (repeatable)")
	cmd.PersistentFlags().StringVarP(&opts.MappingFile, "mapping", "f", "", "Path to a JSON mapping file")
	cmd.PersistentFlags().IntVarP(&opts.Limit, "limit", "l", 0, fmt.Sprintf("Rows fetched per table (default %d)", etl.DefaultFetchLimit))
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "Timeout for each connect, fetch and insert call")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "Fetch every table but do not insert")
	cmd.PersistentFlags().BoolVar(&opts.AutoCreate, "auto-create", false, "Create missing relational tables from the fetched columns")
	cmd.PersistentFlags().BoolVar(&opts.QueryLog, "query-log", false, "Log every SQL statement")
	cmd.PersistentFlags().BoolVar(&opts.NoProgress, "no-progress", false, "Hide the progress bar")

	for _, family := range etl.DefaultRegistry().Families() {
		family := family
		cmd.AddCommand(&cobra.Command{
			Use:   string(family),
			Short: fmt.Sprintf("Run migration into %s", family),
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				return runMigration(c, opts, family)
			},
		})
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run a migration described by a job file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runJob(c, opts)
		},
	}
	run.Flags().StringVarP(&opts.JobFile, "job", "j", "job.json", "Path to the job file")
	cmd.AddCommand(run)

	return cmd
}
