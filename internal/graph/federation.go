package graph

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/busgraph/busgraph/internal/transit"
)

// SDL is the subgraph schema reported to the gateway through _service.
const SDL = `type Query {
  findBusStop(latitude: Float!, longitude: Float!): [BusStop!]!
  busStop(id: ID!): BusStop!
  busStops(ids: [ID!]!): [BusStop!]!
}

type BusStop @key(fields: "id") {
  id: ID!
  commonName: String!
  buses: [String!]!
  stopLetter: String
  towards: String
  direction: String
  arrivals: [Arrival!]!
}

type Arrival {
  id: ID!
  lineName: String!
  timeToStation: String!
}
`

const busStopTypename = "BusStop"

// federation holds the Apollo Federation v1 subgraph types.
type federation struct {
	r           *resolver
	busStop     *graphql.Object
	anyScalar   *graphql.Scalar
	entityUnion *graphql.Union
	serviceType *graphql.Object
}

func newFederation(busStop *graphql.Object, r *resolver) *federation {
	f := &federation{r: r, busStop: busStop}

	f.anyScalar = graphql.NewScalar(graphql.ScalarConfig{
		Name:         "_Any",
		Description:  "An entity representation sent by the gateway.",
		Serialize:    func(value interface{}) interface{} { return value },
		ParseValue:   func(value interface{}) interface{} { return value },
		ParseLiteral: parseAnyLiteral,
	})

	f.entityUnion = graphql.NewUnion(graphql.UnionConfig{
		Name:  "_Entity",
		Types: []*graphql.Object{busStop},
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			if _, ok := p.Value.(*transit.Stop); ok {
				return busStop
			}
			return nil
		},
	})

	f.serviceType = graphql.NewObject(graphql.ObjectConfig{
		Name: "_Service",
		Fields: graphql.Fields{
			"sdl": &graphql.Field{Type: graphql.String},
		},
	})

	return f
}

func (f *federation) serviceField() *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewNonNull(f.serviceType),
		Resolve: func(graphql.ResolveParams) (interface{}, error) {
			return map[string]interface{}{"sdl": SDL}, nil
		},
	}
}

func (f *federation) entitiesField() *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(f.entityUnion)),
		Args: graphql.FieldConfigArgument{
			"representations": &graphql.ArgumentConfig{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(f.anyScalar))),
			},
		},
		Resolve: f.resolveEntities,
	}
}

// resolveEntities resolves BusStop references by id, in representation order.
func (f *federation) resolveEntities(p graphql.ResolveParams) (interface{}, error) {
	reps, ok := p.Args["representations"].([]interface{})
	if !ok {
		return nil, badRequest("representations must be a list")
	}

	ids := make([]string, 0, len(reps))
	for i, rep := range reps {
		id, err := busStopReference(rep)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("representation %d: %s", i, err))
		}
		ids = append(ids, id)
	}

	stops, err := f.r.svc.GetStopsByIDs(p.Context, ids)
	if err != nil {
		return nil, wrapError(err)
	}

	entities := make([]interface{}, len(stops))
	for i, s := range stops {
		entities[i] = s
	}
	return entities, nil
}

func busStopReference(rep interface{}) (string, error) {
	fields, ok := rep.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("expected an object")
	}
	if typename, _ := fields["__typename"].(string); typename != busStopTypename {
		return "", fmt.Errorf("unsupported __typename %q", fields["__typename"])
	}
	id, _ := fields["id"].(string)
	if id == "" {
		return "", fmt.Errorf("missing id")
	}
	return id, nil
}

// parseAnyLiteral converts an inline _Any value into plain Go values.
func parseAnyLiteral(value ast.Value) interface{} {
	switch v := value.(type) {
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, field := range v.Fields {
			out[field.Name.Value] = parseAnyLiteral(field.Value)
		}
		return out
	case *ast.ListValue:
		out := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, parseAnyLiteral(item))
		}
		return out
	case *ast.StringValue:
		return v.Value
	case *ast.EnumValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.IntValue:
		if n, err := strconv.Atoi(v.Value); err == nil {
			return n
		}
		return v.Value
	case *ast.FloatValue:
		if n, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return n
		}
		return v.Value
	}
	return nil
}
