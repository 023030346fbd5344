package server

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

// spatialEntry wraps an entity ID for storage in an R-tree.
type spatialEntry struct {
	id   int
	mask int
	rect rtreego.Rect
}

func (e *spatialEntry) Bounds() rtreego.Rect { return e.rect }

// SpatialIndex answers the overlap-sphere and raycast queries the AI core
// consumes. Agents and pickups are reindexed once per tick; obstacles are
// static for the lifetime of a world.
type SpatialIndex struct {
	world     *game.World
	agents    *rtreego.Rtree
	pickups   *rtreego.Rtree
	obstacles *rtreego.Rtree
}

// NewSpatialIndex builds an index over a world. The obstacle tree is
// populated immediately; call Reindex before the first query of each tick
// to refresh the moving entities.
func NewSpatialIndex(w *game.World) *SpatialIndex {
	si := &SpatialIndex{
		world:   w,
		agents:  rtreego.NewTree(2, 4, 8),
		pickups: rtreego.NewTree(2, 4, 8),
	}
	si.RebuildObstacles()
	return si
}

// RebuildObstacles reloads the static obstacle tree from the world.
func (si *SpatialIndex) RebuildObstacles() {
	tree := rtreego.NewTree(2, 4, 8)
	for i, ob := range si.world.Obstacles {
		rect, err := rtreego.NewRect(
			rtreego.Point{ob.Min.X(), ob.Min.Z()},
			[]float64{ob.Max.X() - ob.Min.X(), ob.Max.Z() - ob.Min.Z()},
		)
		if err != nil {
			continue
		}
		tree.Insert(&spatialEntry{id: i, mask: game.MaskObstacle, rect: rect})
	}
	si.obstacles = tree
}

// Reindex rebuilds the moving-entity trees for the current tick.
func (si *SpatialIndex) Reindex() {
	agents := rtreego.NewTree(2, 4, 8)
	for _, a := range si.world.Agents {
		if a.Status != game.StatusAlive {
			continue
		}
		r := a.Stats.CollisionRadius
		rect, err := rtreego.NewRect(
			rtreego.Point{a.Pos.X() - r, a.Pos.Z() - r},
			[]float64{2 * r, 2 * r},
		)
		if err != nil {
			continue
		}
		agents.Insert(&spatialEntry{id: a.ID, mask: game.MaskAgent, rect: rect})
	}
	si.agents = agents

	pickups := rtreego.NewTree(2, 4, 8)
	for _, pk := range si.world.Pickups {
		if !pk.Active {
			continue
		}
		rect, err := rtreego.NewRect(
			rtreego.Point{pk.Pos.X() - game.PickupRadius, pk.Pos.Z() - game.PickupRadius},
			[]float64{2 * game.PickupRadius, 2 * game.PickupRadius},
		)
		if err != nil {
			continue
		}
		pickups.Insert(&spatialEntry{id: pk.ID, mask: game.MaskPickup, rect: rect})
	}
	si.pickups = pickups
}

// OverlapSphere returns the IDs of entities matching the mask whose center
// lies within radius of the given point (ground-plane distance).
// A zero or negative radius returns nothing.
func (si *SpatialIndex) OverlapSphere(center mgl64.Vec3, radius float64, mask int) []int {
	if radius <= 0 {
		return nil
	}

	bb, err := rtreego.NewRect(
		rtreego.Point{center.X() - radius, center.Z() - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return nil
	}

	var ids []int
	collect := func(tree *rtreego.Rtree, centerOf func(id int) (mgl64.Vec3, bool)) {
		for _, sp := range tree.SearchIntersect(bb) {
			entry := sp.(*spatialEntry)
			pos, ok := centerOf(entry.id)
			if !ok {
				continue
			}
			if game.Distance(center, pos) <= radius {
				ids = append(ids, entry.id)
			}
		}
	}

	if mask&game.MaskAgent != 0 {
		collect(si.agents, func(id int) (mgl64.Vec3, bool) {
			a := si.world.AliveAgent(id)
			if a == nil {
				return mgl64.Vec3{}, false
			}
			return a.Pos, true
		})
	}
	if mask&game.MaskPickup != 0 {
		collect(si.pickups, func(id int) (mgl64.Vec3, bool) {
			pk := si.world.PickupByID(id)
			if pk == nil || !pk.Active {
				return mgl64.Vec3{}, false
			}
			return pk.Pos, true
		})
	}

	return ids
}

// Raycast walks a segment through the obstacle field and reports the first
// hit. Only MaskObstacle is supported: the AI core never wants agents to
// block sight or fire rays.
func (si *SpatialIndex) Raycast(from, to mgl64.Vec3, mask int) (bool, mgl64.Vec3) {
	if mask&game.MaskObstacle == 0 {
		return false, mgl64.Vec3{}
	}

	minX := math.Min(from.X(), to.X())
	minZ := math.Min(from.Z(), to.Z())
	w := math.Abs(to.X()-from.X()) + 0.01
	d := math.Abs(to.Z()-from.Z()) + 0.01

	bb, err := rtreego.NewRect(rtreego.Point{minX, minZ}, []float64{w, d})
	if err != nil {
		return false, mgl64.Vec3{}
	}

	bestT := math.Inf(1)
	for _, sp := range si.obstacles.SearchIntersect(bb) {
		entry := sp.(*spatialEntry)
		ob := si.world.Obstacles[entry.id]
		if t, ok := segmentBoxIntersect(from, to, ob); ok && t < bestT {
			bestT = t
		}
	}

	if math.IsInf(bestT, 1) {
		return false, mgl64.Vec3{}
	}
	hit := from.Add(to.Sub(from).Mul(bestT))
	return true, hit
}

// segmentBoxIntersect runs a slab test of the segment from->to against an
// axis-aligned box. Returns the entry parameter t in [0,1] on hit.
func segmentBoxIntersect(from, to mgl64.Vec3, ob game.Obstacle) (float64, bool) {
	dir := to.Sub(from)
	tMin, tMax := 0.0, 1.0

	for axis := 0; axis < 3; axis++ {
		lo := ob.Min[axis]
		hi := ob.Max[axis]
		o := from[axis]
		d := dir[axis]

		if math.Abs(d) < 1e-12 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}

	return tMin, true
}
