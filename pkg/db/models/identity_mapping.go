package models

// IdentityMapping resolves one device to its stitched person identity.
// Devices that never self-identified map to themselves.
type IdentityMapping struct {
	DeviceID string `gorm:"column:device_id;primaryKey"`
	PersonID string `gorm:"column:person_id;not null"`
}

func (IdentityMapping) TableName() string { return "identity_map" }
