package robot

// Snapshot is a captured set of device positions. Cartesian is ordered
// X, Y, Z, Rx, Ry, Rz; angles are in degrees, positions in millimeters.
type Snapshot struct {
	Joints    [6]float64 `json:"joints"`
	Cartesian [6]float64 `json:"cartesian"`
	Track     float64    `json:"track_position"`
}

// HasPose reports whether any cartesian component is non-zero. Stored
// moves prefer the cartesian pose and fall back to joint angles.
func (s Snapshot) HasPose() bool {
	for _, v := range s.Cartesian {
		if v != 0 {
			return true
		}
	}
	return false
}

// State is the last-known condition of one arm. It is authoritative only
// at the moment a feedback line was decoded; issuing a command never
// mutates it.
type State struct {
	Snapshot
	Connected    bool
	LastFeedback string
}
