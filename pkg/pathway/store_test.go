package pathway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/robot"
)

func snap(seed float64) *robot.Snapshot {
	return &robot.Snapshot{
		Joints:    [6]float64{seed, seed + 1, seed + 2, seed + 3, seed + 4, seed + 5},
		Cartesian: [6]float64{seed * 10, seed * 20, seed * 30, 1.5, -2.5, 179.9},
		Track:     seed * 2,
	}
}

func TestRecorderAppendRemoveClear(t *testing.T) {
	r := NewRecorder()

	require.NoError(t, r.Append(Waypoint{Robot1: snap(1)}))
	require.NoError(t, r.Append(Waypoint{Robot2: snap(2)}))
	require.NoError(t, r.Append(Waypoint{Robot1: snap(3), Robot2: snap(4), FeederPos: 12.5}))
	assert.Equal(t, 3, r.Len())

	w, ok := r.RemoveLast()
	require.True(t, ok)
	assert.Equal(t, 12.5, w.FeederPos)
	assert.Equal(t, 2, r.Len())

	r.Clear()
	assert.Zero(t, r.Len())
	_, ok = r.RemoveLast()
	assert.False(t, ok)
}

func TestRecorderRejectsEmptyWaypoint(t *testing.T) {
	r := NewRecorder()
	err := r.Append(Waypoint{FeederPos: 3})
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Zero(t, r.Len())
}

func TestRecorderPathway(t *testing.T) {
	r := NewRecorder()
	_, err := r.Pathway("empty", ModeR1)
	assert.Error(t, err)

	require.NoError(t, r.Append(Waypoint{Robot1: snap(1)}))
	p, err := r.Pathway("pick and place", ModeBoth)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, ModeBoth, p.RobotMode)
	assert.NotEmpty(t, p.Created)
	assert.Len(t, p.Waypoints, 1)
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	r := NewRecorder()
	require.NoError(t, r.Append(Waypoint{Robot1: snap(1), FeederPos: 5}))
	require.NoError(t, r.Append(Waypoint{Robot1: snap(2), Robot2: snap(3)}))
	require.NoError(t, r.Append(Waypoint{Robot2: snap(4), FeederPos: -1.25}))

	p, err := r.Pathway("Pick And Place", ModeBoth)
	require.NoError(t, err)
	require.NoError(t, s.Save(p))

	r.Clear()

	loaded, err := s.Load("Pick And Place")
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, p.Name, loaded.Name)
	assert.Equal(t, p.RobotMode, loaded.RobotMode)
	assert.Equal(t, p.Created, loaded.Created)
	require.Len(t, loaded.Waypoints, 3)
	assert.Equal(t, p.Waypoints, loaded.Waypoints)
}

func TestStoreListSortedAndDelete(t *testing.T) {
	s := NewStore(t.TempDir())

	for _, name := range []string{"zeta", "alpha", "mid"} {
		p := &Pathway{
			Name:      name,
			RobotMode: ModeR1,
			Waypoints: []Waypoint{{Robot1: snap(1)}},
		}
		require.NoError(t, s.Save(p))
	}

	got, err := s.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "alpha", got[0].Name)
	assert.Equal(t, "mid", got[1].Name)
	assert.Equal(t, "zeta", got[2].Name)

	require.NoError(t, s.Delete("mid"))
	got, err = s.List()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStoreListEmptyDir(t *testing.T) {
	s := NewStore(t.TempDir() + "/missing")
	got, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreSaveRejectsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.Error(t, s.Save(&Pathway{Name: "no-waypoints"}))
	assert.Error(t, s.Save(&Pathway{Waypoints: []Waypoint{{Robot1: snap(1)}}}))
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pick And Place", "pick-and-place"},
		{"  weird // name!  ", "weird--name"},
		{"", "pathway"},
		{"Test_01.v2", "test-01-v2"},
	}

	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRobotModeTargets(t *testing.T) {
	assert.Equal(t, motion.TargetR1, ModeR1.Targets())
	assert.Equal(t, motion.TargetR2, ModeR2.Targets())
	assert.Equal(t, motion.TargetBoth, ModeBoth.Targets())
	assert.Equal(t, ModeBoth, ModeForTargets(motion.TargetBoth))
	assert.Equal(t, ModeR1, ModeForTargets(motion.TargetR1))
}
