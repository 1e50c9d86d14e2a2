package scheduler

import (
	"maps"
	"slices"

	"github.com/google/cel-go/cel"

	"idmcore/internal/identity/models"
	"idmcore/internal/translation"
)

// Variables exposed to bulk rule conditions, in addition to the request
// variables shared with translation profiles.
const (
	VarEntityID    = "entityId"
	VarCredentials = "credentials"
)

// EntityVariables declares the entity view seen by bulk conditions.
func EntityVariables() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Variable(translation.VarIdsByType, cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
		cel.Variable(translation.VarAttrs, cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
		cel.Variable(translation.VarGroups, cel.ListType(cel.StringType)),
		cel.Variable(translation.VarStatus, cel.StringType),
		cel.Variable(VarEntityID, cel.StringType),
		cel.Variable(VarCredentials, cel.ListType(cel.StringType)),
	}
}

// EntityView flattens an entity. Attributes of every group are merged by name.
func EntityView(entity *models.Entity) map[string]any {
	idsByType := make(map[string][]string)
	for _, ident := range entity.Identities {
		idsByType[ident.TypeID] = append(idsByType[ident.TypeID], ident.Value)
	}
	attrs := make(map[string][]string)
	for _, a := range entity.Attributes {
		attrs[a.Name] = append(attrs[a.Name], a.Values...)
	}
	groups := make([]string, 0, len(entity.Groups))
	groups = append(groups, entity.Groups...)
	credentials := make([]string, 0, len(entity.Credentials))
	credentials = append(credentials, slices.Sorted(maps.Keys(entity.Credentials))...)
	return map[string]any{
		translation.VarIdsByType: idsByType,
		translation.VarAttrs:     attrs,
		translation.VarGroups:    groups,
		translation.VarStatus:    string(entity.Status),
		VarEntityID:              entity.ID.String(),
		VarCredentials:           credentials,
	}
}
