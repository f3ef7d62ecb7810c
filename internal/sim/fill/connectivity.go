package fill

// Mode restricts which neighbours a fill may spread to.
type Mode uint8

const (
	ModeFree Mode = iota
	ModeUpOnly
	ModeDownOnly
	ModeLayerOnly
	ModeLockAxisX
	ModeLockAxisZ
)

// Delta is a unit step to an axis-aligned neighbour.
type Delta struct {
	X, Y, Z int
}

var (
	dPosX = Delta{X: 1}
	dNegX = Delta{X: -1}
	dPosZ = Delta{Z: 1}
	dNegZ = Delta{Z: -1}
	dPosY = Delta{Y: 1}
	dNegY = Delta{Y: -1}
)

// Order is +X, -X, +Z, -Z, +Y, -Y with the excluded steps removed.
var modeDeltas = [...][]Delta{
	ModeFree:      {dPosX, dNegX, dPosZ, dNegZ, dPosY, dNegY},
	ModeUpOnly:    {dPosX, dNegX, dPosZ, dNegZ, dPosY},
	ModeDownOnly:  {dPosX, dNegX, dPosZ, dNegZ, dNegY},
	ModeLayerOnly: {dPosX, dNegX, dPosZ, dNegZ},
	ModeLockAxisX: {dPosZ, dNegZ, dPosY, dNegY},
	ModeLockAxisZ: {dPosX, dNegX, dPosY, dNegY},
}

var modeTokens = [...]string{
	ModeFree:      "normal",
	ModeUpOnly:    "up",
	ModeDownOnly:  "down",
	ModeLayerOnly: "layer",
	ModeLockAxisX: "vertical_x",
	ModeLockAxisZ: "vertical_z",
}

// ModeTokens lists the mode tokens in Mode order.
func ModeTokens() []string {
	return append([]string(nil), modeTokens[:]...)
}

// Deltas returns the neighbour steps explored under m. Unknown modes
// behave like ModeFree. The returned slice must not be modified.
func Deltas(m Mode) []Delta {
	if int(m) >= len(modeDeltas) {
		return modeDeltas[ModeFree]
	}
	return modeDeltas[m]
}

func (m Mode) String() string {
	if int(m) >= len(modeTokens) {
		return modeTokens[ModeFree]
	}
	return modeTokens[m]
}

// ParseModeStrict maps a command token to a Mode and reports whether the
// token named a mode at all.
func ParseModeStrict(token string) (Mode, bool) {
	for m, t := range modeTokens {
		if t == token {
			return Mode(m), true
		}
	}
	return ModeFree, false
}

// ParseMode is ParseModeStrict without the flag; unknown tokens give ModeFree.
func ParseMode(token string) Mode {
	m, _ := ParseModeStrict(token)
	return m
}
