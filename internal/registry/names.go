package registry

import (
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/naming"
)

// Model shape suffixes.
const (
	shapeBase                                 = ""
	shapePartial                              = "Partial"
	shapeOptionalDefaults                     = "OptionalDefaults"
	shapeWithRelations                        = "WithRelations"
	shapePartialWithRelations                 = "PartialWithRelations"
	shapeOptionalDefaultsWithRelations        = "OptionalDefaultsWithRelations"
	shapeWithPartialRelations                 = "WithPartialRelations"
	shapeOptionalDefaultsWithPartialRelations = "OptionalDefaultsWithPartialRelations"
)

// Per-entity input suffixes.
const (
	whereInput                     = "WhereInput"
	whereUniqueInput               = "WhereUniqueInput"
	scalarWhereInput               = "ScalarWhereInput"
	scalarWhereWithAggregatesInput = "ScalarWhereWithAggregatesInput"
	relationFilter                 = "RelationFilter"
	nullableRelationFilter         = "NullableRelationFilter"
	listRelationFilter             = "ListRelationFilter"

	orderByWithRelationInput    = "OrderByWithRelationInput"
	orderByWithAggregationInput = "OrderByWithAggregationInput"
	orderByRelationAggregate    = "OrderByRelationAggregateInput"
	countOrderByAggregateInput  = "CountOrderByAggregateInput"
	avgOrderByAggregateInput    = "AvgOrderByAggregateInput"
	sumOrderByAggregateInput    = "SumOrderByAggregateInput"
	minOrderByAggregateInput    = "MinOrderByAggregateInput"
	maxOrderByAggregateInput    = "MaxOrderByAggregateInput"

	countAggregateInput = "CountAggregateInput"
	avgAggregateInput   = "AvgAggregateInput"
	sumAggregateInput   = "SumAggregateInput"
	minAggregateInput   = "MinAggregateInput"
	maxAggregateInput   = "MaxAggregateInput"

	createInput              = "CreateInput"
	uncheckedCreateInput     = "UncheckedCreateInput"
	updateInput              = "UpdateInput"
	uncheckedUpdateInput     = "UncheckedUpdateInput"
	createManyInput          = "CreateManyInput"
	updateManyMutationInput  = "UpdateManyMutationInput"
	uncheckedUpdateManyInput = "UncheckedUpdateManyInput"

	selectName            = "Select"
	includeName           = "Include"
	argsName              = "Args"
	countOutputTypeSelect = "CountOutputTypeSelect"
	countOutputTypeArgs   = "CountOutputTypeArgs"

	findManyArgs    = "FindManyArgs"
	findUniqueArgs  = "FindUniqueArgs"
	aggregateArgs   = "AggregateArgs"
	groupByArgs     = "GroupByArgs"
	scalarFieldEnum = "ScalarFieldEnum"
)

// Shared slot names.
const (
	SortOrderInputName = "SortOrderInput"
	JsonValueName      = "JsonValue"
	InputJsonValueName = "InputJsonValue"
)

// nested names the slots that serve one relation from the far side: T is the
// entity being written through the relation and back is T's relation that
// points at the writer, so the writer's own row is implied.
type nested struct {
	t    *model.Entity
	back model.Relation
}

func (n nested) label() string { return naming.ToPascalCase(n.back.Name) }

func (n nested) without(kind string) string {
	return n.t.Name + kind + "Without" + n.label() + "Input"
}

func (n nested) createWithout() string          { return n.without("Create") }
func (n nested) uncheckedCreateWithout() string { return n.without("UncheckedCreate") }
func (n nested) createOrConnectWithout() string { return n.without("CreateOrConnect") }
func (n nested) updateWithout() string          { return n.without("Update") }
func (n nested) uncheckedUpdateWithout() string { return n.without("UncheckedUpdate") }

func (n nested) createNestedMany() string           { return n.without("CreateNestedMany") }
func (n nested) uncheckedCreateNestedMany() string  { return n.without("UncheckedCreateNestedMany") }
func (n nested) createNestedOne() string            { return n.without("CreateNestedOne") }
func (n nested) upsertWithout() string              { return n.without("Upsert") }
func (n nested) upsertWithWhereUnique() string      { return n.without("UpsertWithWhereUnique") }
func (n nested) updateWithWhereUnique() string      { return n.without("UpdateWithWhereUnique") }
func (n nested) updateManyWithWhere() string        { return n.without("UpdateManyWithWhere") }
func (n nested) uncheckedUpdateManyWithout() string { return n.without("UncheckedUpdateMany") }

func (n nested) createManyEnvelope() string {
	return n.t.Name + "CreateMany" + n.label() + "InputEnvelope"
}

func (n nested) createMany() string {
	return n.t.Name + "CreateMany" + n.label() + "Input"
}

func (n nested) nestedInput(kind string) string {
	return n.t.Name + kind + "Without" + n.label() + "NestedInput"
}

func (n nested) updateManyNested() string          { return n.nestedInput("UpdateMany") }
func (n nested) uncheckedUpdateManyNested() string { return n.nestedInput("UncheckedUpdateMany") }
func (n nested) updateOneRequiredNested() string   { return n.nestedInput("UpdateOneRequired") }
func (n nested) updateOneNested() string           { return n.nestedInput("UpdateOne") }
