// Package service is the request-facing facade over the registry, the SQL
// renderer and the store. HTTP handlers, the GraphQL schema and the CLI all
// go through it so validation is logged and measured the same way.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/TakashiAihara/preppin-sub000/internal/observability"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
	"github.com/TakashiAihara/preppin-sub000/internal/store"
)

// Service bundles the read-only pieces built at startup.
type Service struct {
	registry     *registry.Registry
	materialized *registry.Registry
	compiler     *sqlfilter.Compiler
	store        *store.Store
	validation   *observability.ValidationMetrics
	queries      *observability.QueryMetrics
	logger       *slog.Logger
}

// Options configures New. Only Registry is required.
type Options struct {
	Registry *registry.Registry
	// Materialized is consulted when a caller asks for defaults to be
	// filled. It must be built with MaterializeDefaults set.
	Materialized      *registry.Registry
	Compiler          *sqlfilter.Compiler
	Store             *store.Store
	ValidationMetrics *observability.ValidationMetrics
	QueryMetrics      *observability.QueryMetrics
	Logger            *slog.Logger
}

// New builds a Service. A missing store behaves like a disabled one.
func New(opts Options) *Service {
	s := &Service{
		registry:     opts.Registry,
		materialized: opts.Materialized,
		compiler:     opts.Compiler,
		store:        opts.Store,
		validation:   opts.ValidationMetrics,
		queries:      opts.QueryMetrics,
		logger:       opts.Logger,
	}
	if s.materialized == nil {
		s.materialized = s.registry
	}
	if s.store == nil {
		s.store = store.Disabled()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Registry returns the registry used for plain validation.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Store returns the backing store, which may be disabled.
func (s *Service) Store() *store.Store { return s.store }

// Schemas lists every schema name, or only those derived from entity when
// entity is non-empty.
func (s *Service) Schemas(entity string) ([]string, error) {
	if entity == "" {
		return s.registry.Names(), nil
	}
	if err := s.checkEntity(entity); err != nil {
		return nil, err
	}
	return s.registry.EntityNames(entity), nil
}

// Describe outlines the named schema.
func (s *Service) Describe(name string) (schema.Description, error) {
	sch, err := s.registry.Lookup(name)
	if err != nil {
		return schema.Description{}, err
	}
	d := schema.Describe(sch)
	if d.Name == "" {
		d.Name = name
	}
	return d, nil
}

// Validate parses v against the named schema. With materialize set,
// absent defaulted fields of create and OptionalDefaults shapes are filled.
func (s *Service) Validate(ctx context.Context, name string, v any, materialize bool) (any, error) {
	reg := s.registry
	if materialize {
		reg = s.materialized
	}
	start := time.Now()
	out, err := reg.Validate(name, v)
	if errors.Is(err, registry.ErrUnknownSchema) {
		return nil, err
	}

	var codes []string
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		for _, code := range verr.Issues.Codes() {
			codes = append(codes, string(code))
		}
		s.logger.DebugContext(ctx, "validation failed",
			slog.String("schema", name),
			slog.Int("issues", len(verr.Issues)),
		)
	}
	s.validation.Record(ctx, name, time.Since(start), codes)
	return out, err
}

func (s *Service) checkEntity(entity string) error {
	if _, ok := s.registry.Model().Entity(entity); !ok {
		return fmt.Errorf("%w: %s", sqlfilter.ErrUnknownEntity, entity)
	}
	return nil
}

func (s *Service) findManyArgs(ctx context.Context, entity string, args any) (map[string]any, error) {
	if err := s.checkEntity(entity); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	out, err := s.Validate(ctx, entity+"FindManyArgs", args, false)
	if err != nil {
		return nil, err
	}
	m, _ := out.(map[string]any)
	return m, nil
}

// RenderWhere validates where as the entity's WhereInput and renders it as
// a SQL predicate.
func (s *Service) RenderWhere(ctx context.Context, entity string, where any) (sqlfilter.Query, error) {
	if err := s.checkEntity(entity); err != nil {
		return sqlfilter.Query{}, err
	}
	out, err := s.Validate(ctx, entity+"WhereInput", where, false)
	if err != nil {
		return sqlfilter.Query{}, err
	}
	m, _ := out.(map[string]any)
	return s.compiler.WhereSQL(entity, m)
}

// RenderFindMany validates args as the entity's FindManyArgs and renders
// the SELECT it describes.
func (s *Service) RenderFindMany(ctx context.Context, entity string, args any) (sqlfilter.Query, error) {
	m, err := s.findManyArgs(ctx, entity, args)
	if err != nil {
		return sqlfilter.Query{}, err
	}
	return s.compiler.FindManySQL(entity, m)
}

// Find validates args and runs them against the store.
func (s *Service) Find(ctx context.Context, entity string, args any) ([]map[string]any, error) {
	if !s.store.Enabled() {
		return nil, store.ErrNotConfigured
	}
	m, err := s.findManyArgs(ctx, entity, args)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.store.FindMany(ctx, entity, m)
	s.queries.Record(ctx, entity, time.Since(start), len(rows), err)
	return rows, err
}
