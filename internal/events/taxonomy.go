package events

import "strings"

// EntityType represents the synced entity kinds. The value doubles as the
// local table name.
type EntityType string

// ActionType represents what a local write did to an entity.
type ActionType string

// Canonical entity types
const (
	EntityServers      EntityType = "servers"
	EntityEvents       EntityType = "events"
	EntityRegforms     EntityType = "regforms"
	EntityParticipants EntityType = "participants"
)

// Canonical action types
const (
	ActionInsert     ActionType = "insert"
	ActionUpdate     ActionType = "update"
	ActionSoftDelete ActionType = "soft_delete"
)

// AllEntityTypes returns all valid entity types.
func AllEntityTypes() map[EntityType]bool {
	return map[EntityType]bool{
		EntityServers:      true,
		EntityEvents:       true,
		EntityRegforms:     true,
		EntityParticipants: true,
	}
}

// SyncedEntityTypes returns the entity types that are reconciled against the
// remote, parent first.
func SyncedEntityTypes() []EntityType {
	return []EntityType{EntityEvents, EntityRegforms, EntityParticipants}
}

// IsValidEntityType checks if the given entity type string is valid.
func IsValidEntityType(et string) bool {
	return AllEntityTypes()[EntityType(et)]
}

// NormalizeEntityType normalizes an entity type string to its canonical form.
// Handles both singular and plural forms.
func NormalizeEntityType(entityType string) (EntityType, bool) {
	switch strings.ToLower(entityType) {
	case "server", "servers":
		return EntityServers, true
	case "event", "events":
		return EntityEvents, true
	case "regform", "regforms", "form", "forms":
		return EntityRegforms, true
	case "participant", "participants", "registration", "registrations":
		return EntityParticipants, true
	default:
		return "", false
	}
}

// Singular returns the human-readable singular name of the entity type.
func (et EntityType) Singular() string {
	switch et {
	case EntityRegforms:
		return "registration form"
	default:
		return strings.TrimSuffix(string(et), "s")
	}
}

// ValidEntityActionCombinations defines which actions sync may perform per kind.
// Events are only ever created by the user, and regforms are never inserted
// by reconciliation.
func ValidEntityActionCombinations() map[EntityType]map[ActionType]bool {
	return map[EntityType]map[ActionType]bool{
		EntityServers: {
			ActionInsert: true,
			ActionUpdate: true,
		},
		EntityEvents: {
			ActionInsert:     true,
			ActionUpdate:     true,
			ActionSoftDelete: true,
		},
		EntityRegforms: {
			ActionInsert:     true,
			ActionUpdate:     true,
			ActionSoftDelete: true,
		},
		EntityParticipants: {
			ActionInsert:     true,
			ActionUpdate:     true,
			ActionSoftDelete: true,
		},
	}
}
