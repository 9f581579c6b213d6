// Package cli implements preppinctl, an offline client for the schema
// registry and the SQL renderer.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/naming"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
	"github.com/TakashiAihara/preppin-sub000/internal/service"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
)

// ErrInvalid is returned after a failed validation has been reported.
var ErrInvalid = errors.New("input is invalid")

// NewRootCommand builds the preppinctl command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "preppinctl",
		Short:         "Inspect and exercise the inventory input schemas",
		Long:          `preppinctl lists the derived input schemas, validates JSON payloads against them and renders the SQL a query would run.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSchemasCommand(),
		newValidateCommand(),
		newSQLCommand(),
		newWhereCommand(),
		newMigrateCommand(),
	)
	return root
}

// newService wires an in-process service without a database.
func newService() *service.Service {
	m := model.Inventory()
	return service.New(service.Options{
		Registry:     registry.New(m, registry.Options{}),
		Materialized: registry.New(m, registry.Options{MaterializeDefaults: true}),
		Compiler:     sqlfilter.New(m, naming.Default()),
	})
}

// readInput decodes one JSON value from path, or from stdin when path is
// "-". An empty path reads nothing and returns fallback.
func readInput(cmd *cobra.Command, path string, fallback any) (any, error) {
	var r io.Reader
	switch path {
	case "":
		return fallback, nil
	case "-":
		r = cmd.InOrStdin()
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		if errors.Is(err, io.EOF) && fallback != nil {
			return fallback, nil
		}
		return nil, fmt.Errorf("decode %s: %w", displayName(path), err)
	}
	return v, nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
