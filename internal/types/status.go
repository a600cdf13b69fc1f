package types

// Status is a type for the lifecycle state of a stored record.
// This tracks soft-deletion and archival, not the provisioning state of an
// account (see ServiceStatus for that).
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)
