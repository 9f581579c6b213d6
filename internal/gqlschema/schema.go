// Package gqlschema exposes the validation registry over GraphQL. Every
// registry input is exported as a named input type for introspection, and
// the query root validates payloads and renders filters.
package gqlschema

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/TakashiAihara/preppin-sub000/internal/schema"
	"github.com/TakashiAihara/preppin-sub000/internal/service"
)

// Build assembles the GraphQL schema served at /graphql.
func Build(svc *service.Service) (graphql.Schema, error) {
	jsonScalar := JSON()
	dateTime := DateTime()
	mapper := newTypeMapper(jsonScalar, dateTime)
	types := mapper.registryTypes(svc.Registry())

	issueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ValidationIssue",
		Fields: graphql.Fields{
			"code":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"path":     &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
			"message":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"expected": &graphql.Field{Type: graphql.String},
			"received": &graphql.Field{Type: graphql.String},
			"options":  &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
			"alternatives": &graphql.Field{
				Type: jsonScalar,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					issue, _ := p.Source.(issueView)
					if len(issue.Alternatives) == 0 {
						return nil, nil
					}
					return issue.Alternatives, nil
				},
			},
		},
	})
	validationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ValidationResult",
		Fields: graphql.Fields{
			"valid":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"value":  &graphql.Field{Type: jsonScalar},
			"issues": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(issueType)))},
		},
	})
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SqlQuery",
		Fields: graphql.Fields{
			"sql":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"args": &graphql.Field{Type: jsonScalar},
		},
	})

	r := &resolvers{svc: svc}
	root := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"schemas": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Description: "Registered schema names, optionally limited to one entity.",
				Args: graphql.FieldConfigArgument{
					"entity": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.schemas,
			},
			"describe": &graphql.Field{
				Type: jsonScalar,
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.describe,
			},
			"validate": &graphql.Field{
				Type:        graphql.NewNonNull(validationType),
				Description: "Validates input against a named schema.",
				Args: graphql.FieldConfigArgument{
					"schema":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"input":       &graphql.ArgumentConfig{Type: jsonScalar},
					"materialize": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: r.validate,
			},
			"renderWhere": &graphql.Field{
				Type: graphql.NewNonNull(queryType),
				Args: graphql.FieldConfigArgument{
					"entity": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"where":  &graphql.ArgumentConfig{Type: jsonScalar},
				},
				Resolve: r.renderWhere,
			},
			"renderFindMany": &graphql.Field{
				Type: graphql.NewNonNull(queryType),
				Args: graphql.FieldConfigArgument{
					"entity": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"args":   &graphql.ArgumentConfig{Type: jsonScalar},
				},
				Resolve: r.renderFindMany,
			},
			"find": &graphql.Field{
				Type:        jsonScalar,
				Description: "Runs FindManyArgs against the database.",
				Args: graphql.FieldConfigArgument{
					"entity": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"args":   &graphql.ArgumentConfig{Type: jsonScalar},
				},
				Resolve: r.find,
			},
		},
	})

	s, err := graphql.NewSchema(graphql.SchemaConfig{Query: root, Types: types})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build graphql schema: %w", err)
	}
	return s, nil
}

// issueView is the resolver-facing shape of schema.Issue.
type issueView struct {
	Code         string     `json:"code"`
	Path         []string   `json:"path"`
	Message      string     `json:"message"`
	Expected     string     `json:"expected,omitempty"`
	Received     string     `json:"received,omitempty"`
	Options      []string   `json:"options,omitempty"`
	Alternatives [][]string `json:"alternatives,omitempty"`
}

type resolvers struct {
	svc *service.Service
}

func (r *resolvers) schemas(p graphql.ResolveParams) (interface{}, error) {
	entity, _ := p.Args["entity"].(string)
	return r.svc.Schemas(entity)
}

func (r *resolvers) describe(p graphql.ResolveParams) (interface{}, error) {
	name, _ := p.Args["name"].(string)
	return r.svc.Describe(name)
}

func (r *resolvers) validate(p graphql.ResolveParams) (interface{}, error) {
	name, _ := p.Args["schema"].(string)
	materialize, _ := p.Args["materialize"].(bool)
	out, err := r.svc.Validate(p.Context, name, p.Args["input"], materialize)

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		issues := make([]issueView, len(verr.Issues))
		for i, issue := range verr.Issues {
			issues[i] = issueView{
				Code:         string(issue.Code),
				Path:         append([]string{}, issue.Path...),
				Message:      issue.Message,
				Expected:     issue.Expected,
				Received:     issue.Received,
				Options:      issue.Options,
				Alternatives: issue.Alternatives,
			}
		}
		return map[string]interface{}{"valid": false, "issues": issues}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"valid": true, "value": out, "issues": []issueView{}}, nil
}

func (r *resolvers) renderWhere(p graphql.ResolveParams) (interface{}, error) {
	entity, _ := p.Args["entity"].(string)
	where := p.Args["where"]
	if where == nil {
		where = map[string]interface{}{}
	}
	q, err := r.svc.RenderWhere(p.Context, entity, where)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"sql": q.SQL, "args": q.Args}, nil
}

func (r *resolvers) renderFindMany(p graphql.ResolveParams) (interface{}, error) {
	entity, _ := p.Args["entity"].(string)
	q, err := r.svc.RenderFindMany(p.Context, entity, p.Args["args"])
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"sql": q.SQL, "args": q.Args}, nil
}

func (r *resolvers) find(p graphql.ResolveParams) (interface{}, error) {
	entity, _ := p.Args["entity"].(string)
	return r.svc.Find(p.Context, entity, p.Args["args"])
}
