package fill

// ExtendedBase is the base id whose real identity lives in Material.Ext.
const ExtendedBase uint8 = 163

// Material is the pair stored per voxel. Ext is only meaningful when Base
// is ExtendedBase.
type Material struct {
	Base uint8
	Ext  uint8
}

func (m Material) Extended() bool { return m.Base == ExtendedBase }

// Matches reports whether candidate belongs to a region of target.
func Matches(candidate, target Material) bool {
	if candidate.Base != target.Base {
		return false
	}
	if target.Base == ExtendedBase {
		return candidate.Ext == target.Ext
	}
	return true
}
