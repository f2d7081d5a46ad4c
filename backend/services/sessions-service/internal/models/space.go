package models

// SpaceStatus mirrors the status field of the parking-space inventory
// service. The inventory owns the value; this service only pushes updates.
type SpaceStatus string

const (
	SpaceAvailable   SpaceStatus = "available"
	SpaceOccupied    SpaceStatus = "occupied"
	SpaceMaintenance SpaceStatus = "maintenance"
)
