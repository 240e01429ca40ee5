package types

type Role string

const (
	RoleCustomer Role = "customer"
	RoleArtisan  Role = "artisan"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleArtisan, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// SystemActorID is recorded as changed_by for automatic transitions.
const SystemActorID = "00000000-0000-0000-0000-000000000000"

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func SystemActor() Actor {
	return Actor{ID: SystemActorID, Role: RoleSystem}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) Is(role Role, id string) bool {
	return a.Role == role && a.ID != "" && a.ID == id
}

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}
