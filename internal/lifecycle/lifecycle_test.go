package lifecycle

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2012, 4, 25, 12, 0, 0, 0, time.UTC)

func at(min float64) time.Time {
	return t0.Add(time.Duration(min * float64(time.Minute)))
}

func iv(a, b float64) Interval {
	return Interval{Start: at(a), Stop: at(b)}
}

func TestMerge(t *testing.T) {
	got := Merge([]Interval{iv(0, 2), iv(4, 6), iv(5, 7)})
	assert.Equal(t, []Interval{iv(0, 2), iv(4, 7)}, got)
}

func TestMergeIntoSequence(t *testing.T) {
	merged := Merge([]Interval{iv(0, 2), iv(4, 6), iv(5, 7)})

	tests := []struct {
		name string
		add  Interval
		want []Interval
	}{
		{"touching both sides joins", iv(2, 4), []Interval{iv(0, 7)}},
		{"extends start", iv(-1, 3), []Interval{iv(-1, 7)}},
		{"covered", iv(1, 6), []Interval{iv(-1, 7)}},
		{"extends stop", iv(1, 8), []Interval{iv(-1, 8)}},
		{"equal", iv(-1, 8), []Interval{iv(-1, 8)}},
		{"disjoint point after", Point(at(10)), []Interval{iv(-1, 8), iv(10, 10)}},
		{"disjoint before", iv(-5, -3), []Interval{iv(-5, -3), iv(-1, 8), iv(10, 10)}},
		{"spans gap", iv(-3, 10), []Interval{iv(-5, 10)}},
	}
	for _, tt := range tests {
		merged = MergeInto(merged, tt.add)
		assert.Equal(t, tt.want, merged, tt.name)
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	in := []Interval{iv(0, 2), iv(4, 6)}
	out := MergeInto(in, iv(1, 5))
	assert.Equal(t, []Interval{iv(0, 2), iv(4, 6)}, in)
	assert.Equal(t, []Interval{iv(0, 6)}, out)
}

func TestMergeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 200; n++ {
		var ivs []Interval
		for k := rng.Intn(10); k >= 0; k-- {
			a := float64(rng.Intn(30))
			ivs = append(ivs, iv(a, a+float64(rng.Intn(5))))
		}

		merged := Merge(ivs)
		for i := 0; i+1 < len(merged); i++ {
			require.True(t, merged[i].Stop.Before(merged[i+1].Start), "adjacent intervals %v %v", merged[i], merged[i+1])
		}
		for _, in := range ivs {
			covered := false
			for _, m := range merged {
				covered = covered || m.Contains(in)
			}
			require.True(t, covered, "%v not covered", in)
		}
		require.Equal(t, merged, Merge(merged), "merge not idempotent")
	}
}

func TestIntervalWidenAndContains(t *testing.T) {
	i := Point(at(2))
	i.Widen(at(1))
	i.Widen(at(3))
	i.Widen(at(2))
	assert.Equal(t, iv(1, 3), i)
	assert.True(t, i.Contains(iv(1, 3)))
	assert.True(t, i.Contains(iv(2, 2)))
	assert.False(t, i.Contains(iv(0, 2)))
	assert.Equal(t, 2*time.Minute, i.Duration())
}

func snapshots() []map[int]string {
	return []map[int]string{
		{0: "p0", 1: "p1", 2: "p2", 3: "p3", 4: "p4", 5: "p5"},
		{2: "p2", 3: "p3", 5: "p5", 6: "p6", 7: "p4", 8: "p5"},
		{1: "p1", 3: "p3", 5: "p5", 6: "p6", 8: "p5", 9: "p0"},
		{1: "p1", 6: "p6", 8: "p5", 9: "p0", 10: "p4"},
	}
}

func TestTimelineStatistics(t *testing.T) {
	s := snapshots()
	tl := NewTimeline()

	// Out of order on purpose.
	require.NoError(t, tl.AddSnapshot(s[1], at(1), "b"))
	require.NoError(t, tl.AddSnapshot(s[0], at(0), "a"))
	require.NoError(t, tl.AddSnapshot(s[3], at(3), "d"))
	require.NoError(t, tl.AddSnapshot(s[2], at(2), "c"))

	assert.Equal(t, []time.Time{at(0), at(1), at(2), at(3)}, tl.Timestamps())
	require.Equal(t, 4, tl.Len())
	assert.Equal(t, "c", tl.Snapshot(2).URI)
	assert.Equal(t, s[2], tl.Snapshot(2).Processes)
	assert.Equal(t, []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6"}, tl.ProcessNames())

	tests := []struct {
		name      string
		lifespan  time.Duration
		latency   time.Duration
		instances int
		overlap   int
	}{
		{"invalid", 0, 0, 0, 0},
		{"p0", 30 * time.Second, 2 * time.Minute, 2, 0},
		{"p1", 3 * time.Minute, 0, 1, 0},
		{"p2", 1 * time.Minute, 0, 1, 0},
		{"p3", 2 * time.Minute, 0, 1, 0},
		{"p4", 0, 90 * time.Second, 3, 0},
		{"p5", 2 * time.Minute, 0, 2, 2},
		{"p6", 2 * time.Minute, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.lifespan, tl.AverageLifespan(tt.name), "lifespan")
			assert.Equal(t, tt.latency, tl.AverageRestartLatency(tt.name), "restart latency")
			assert.Equal(t, tt.instances, tl.InstanceCount(tt.name), "instances")
			assert.Equal(t, tt.overlap, tl.OverlapCount(tt.name), "overlap")
		})
	}

	created := []int{6, 3, 1, 1}
	destroyed := []int{2, 2, 2, 5}
	for i := range created {
		assert.Equal(t, created[i], tl.CreatedAt(at(float64(i))), "created at %d", i)
		assert.Equal(t, destroyed[i], tl.DestroyedAt(at(float64(i))), "destroyed at %d", i)
	}
}

func TestTimestampsSortedForAnyOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		order := rng.Perm(8)
		tl := NewTimeline()
		for _, m := range order {
			require.NoError(t, tl.AddSnapshot(map[int]string{}, at(float64(m)), ""))
		}
		ts := tl.Timestamps()
		for i := 0; i+1 < len(ts); i++ {
			require.False(t, ts[i+1].Before(ts[i]), "order %v gave %v", order, ts)
		}
	}
}

func TestZeroTimestampIgnored(t *testing.T) {
	tl := NewTimeline()
	require.NoError(t, tl.AddSnapshot(map[int]string{1: "a"}, time.Time{}, ""))
	assert.Zero(t, tl.Len())
	assert.Zero(t, tl.InstanceCount("a"))
}

func TestConflictLeavesTimelineUnchanged(t *testing.T) {
	tl := NewTimeline()
	require.NoError(t, tl.AddSnapshot(map[int]string{100: "app"}, at(0), ""))

	err := tl.AddSnapshot(map[int]string{100: "other", 200: "new"}, at(1), "")
	require.Error(t, err)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 100, conflict.PID)
	assert.Equal(t, "app", conflict.Expected)
	assert.Equal(t, "other", conflict.Actual)

	assert.Equal(t, 1, tl.Len())
	assert.Zero(t, tl.InstanceCount("other"))
	assert.Zero(t, tl.InstanceCount("new"))
	assert.Equal(t, []string{"app"}, tl.ProcessNames())

	// The pid that came with the rejected snapshot is still free.
	require.NoError(t, tl.AddSnapshot(map[int]string{200: "another"}, at(2), ""))
}

func TestGapIsNotDestruction(t *testing.T) {
	tl := NewTimeline()
	require.NoError(t, tl.AddSnapshot(map[int]string{42: "svc"}, at(1), ""))
	require.NoError(t, tl.AddSnapshot(map[int]string{}, at(2), ""))
	require.NoError(t, tl.AddSnapshot(map[int]string{42: "svc"}, at(3), ""))

	assert.Equal(t, 1, tl.InstanceCount("svc"))
	assert.Equal(t, 2*time.Minute, tl.AverageLifespan("svc"))
	assert.Zero(t, tl.DestroyedAt(at(2)))
	assert.Equal(t, 1, tl.DestroyedAt(at(3)))
	assert.Equal(t, 1, tl.CreatedAt(at(1)))
	assert.Zero(t, tl.CreatedAt(at(2)))
	assert.Zero(t, tl.CreatedAt(at(3)))
}

func TestSnapshotIsCopied(t *testing.T) {
	procs := map[int]string{1: "app"}
	tl := NewTimeline()
	require.NoError(t, tl.AddSnapshot(procs, at(0), ""))

	procs[1] = "changed"
	procs[2] = "added"

	assert.Equal(t, map[int]string{1: "app"}, tl.Snapshot(0).Processes)
	assert.Equal(t, []string{"app"}, tl.ProcessNames())
}

func TestIgnoredProcessesNotCounted(t *testing.T) {
	tl := NewTimeline()
	require.NoError(t, tl.AddSnapshot(map[int]string{1: "procrank", 2: "logcat", 3: "app"}, at(0), ""))
	assert.Equal(t, 1, tl.CreatedAt(at(0)))
	assert.Equal(t, 1, tl.DestroyedAt(at(0)))
	assert.Equal(t, 1, tl.InstanceCount("procrank"))
}
