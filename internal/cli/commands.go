package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/naming"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
	"github.com/TakashiAihara/preppin-sub000/internal/store"
)

const (
	entityFlag  = "entity"
	fileFlag    = "file"
	schemaFlag  = "schema"
	dbFlag      = "db"
	timeoutFlag = "timeout"
)

func newSchemasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas [list|describe]",
		Short: "List or describe the registered schemas",
	}
	cmd.AddCommand(newSchemasListCommand(), newSchemasDescribeCommand())
	return cmd
}

func newSchemasListCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		entityFlag: &cobraflags.StringFlag{
			Name:  entityFlag,
			Value: "",
			Usage: "Only list schemas derived from this entity",
		},
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered schema names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := newService().Schemas(flags[entityFlag].GetString())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func newSchemasDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Print the shape of a schema as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newService().Describe(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, d)
		},
	}
}

func newValidateCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		schemaFlag: &cobraflags.StringFlag{
			Name:  schemaFlag,
			Value: "",
			Usage: "Schema name to validate against (required)",
		},
	}
	var (
		file        string
		materialize bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a JSON payload against a schema",
		Long: `Validate a JSON payload against a schema. The normalized value is printed
on success; the issues are printed and the command fails otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := flags[schemaFlag].GetString()
			if name == "" {
				return fmt.Errorf("--%s is required", schemaFlag)
			}
			input, err := readInput(cmd, file, nil)
			if err != nil {
				return err
			}
			out, err := newService().Validate(cmd.Context(), name, input, materialize)
			if err != nil {
				return reportInvalid(cmd, err)
			}
			return printJSON(cmd, map[string]any{"valid": true, "value": out})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().StringVarP(&file, fileFlag, "f", "-", "JSON file to validate (- for stdin)")
	cmd.Flags().BoolVar(&materialize, "materialize", false, "Fill defaulted fields into create payloads")
	return cmd
}

// entityInputCommand renders an entity-scoped payload read from --file.
func entityInputCommand(use, short, fileUsage string, render func(ctx context.Context, entity string, input any) (sqlfilter.Query, error)) *cobra.Command {
	var entity, file string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := readInput(cmd, file, map[string]any{})
			if err != nil {
				return err
			}
			q, err := render(cmd.Context(), entity, input)
			if err != nil {
				return reportInvalid(cmd, err)
			}
			return printJSON(cmd, q)
		},
	}
	cmd.Flags().StringVarP(&entity, entityFlag, "e", "", "Entity name (required)")
	cmd.Flags().StringVarP(&file, fileFlag, "f", "", fileUsage)
	_ = cmd.MarkFlagRequired(entityFlag)
	return cmd
}

func newSQLCommand() *cobra.Command {
	return entityInputCommand("sql", "Render the SELECT for an entity's FindManyArgs",
		"JSON file holding FindManyArgs (- for stdin, empty for {})",
		func(ctx context.Context, entity string, input any) (sqlfilter.Query, error) {
			return newService().RenderFindMany(ctx, entity, input)
		})
}

func newWhereCommand() *cobra.Command {
	return entityInputCommand("where", "Render the predicate for an entity's WhereInput",
		"JSON file holding a WhereInput (- for stdin, empty for {})",
		func(ctx context.Context, entity string, input any) (sqlfilter.Query, error) {
			return newService().RenderWhere(ctx, entity, input)
		})
}

func newMigrateCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		dbFlag: &cobraflags.StringFlag{
			Name:  dbFlag,
			Value: "",
			Usage: "Postgres connection string",
		},
	}
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded migrations to a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn := flags[dbFlag].GetString()
			if dsn == "" {
				return fmt.Errorf("--%s is required", dbFlag)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			m := model.Inventory()
			st, err := store.Open(ctx, store.Config{DSN: dsn, ConnectTimeout: timeout, RetryInterval: time.Second},
				m, sqlfilter.New(m, naming.Default()), slog.Default())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().DurationVar(&timeout, timeoutFlag, 0, "Wait this long for the database to come up")
	return cmd
}

// reportInvalid prints validation issues and turns them into ErrInvalid.
func reportInvalid(cmd *cobra.Command, err error) error {
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	if perr := printJSON(cmd, map[string]any{"valid": false, "issues": verr.Issues}); perr != nil {
		return perr
	}
	return ErrInvalid
}
