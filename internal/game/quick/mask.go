package quick

import (
	"sort"

	"github.com/mitchelldurbincs/TacticalSearch/internal/common"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// TwoTeamCentroid is the midpoint of the two teams' centroids over living
// units. A team with no living units counts as the board center.
func TwoTeamCentroid(b core.BoardOps) core.Coordinate {
	center := common.BoardCenter(b.Width(), b.Height())
	var pts [core.NumTeams][]core.Coordinate
	for _, t := range []core.Team{core.Red, core.Blue} {
		for _, u := range b.TeamUnits(t) {
			if !u.IsDead() {
				pts[t] = append(pts[t], u.Position())
			}
		}
	}
	return common.Midpoint(
		common.Centroid(pts[core.Red], center),
		common.Centroid(pts[core.Blue], center),
	)
}

// UnitValue ranks units for masking: HP dominates, then closeness to the
// fighting, then id.
func UnitValue(u core.UnitOps, centroid core.Coordinate) int {
	return u.ID() + 1000*u.HP() + 100*(15-u.Position().DistanceTo(centroid))
}

// ActiveMask picks the canonical ids to sit out an episode so that at most
// friendCap units of the side to move and enemyCap opponents are still
// waiting to act. The lowest-valued units are masked first.
func ActiveMask(b core.BoardOps, friendCap, enemyCap int) map[int]bool {
	centroid := TwoTeamCentroid(b)
	mask := make(map[int]bool)
	for _, side := range []struct {
		team  core.Team
		limit int
	}{
		{b.Phase(), friendCap},
		{b.Phase().Opponent(), enemyCap},
	} {
		var active []core.UnitOps
		for _, u := range b.TeamUnits(side.team) {
			if !u.IsDead() && !u.ActionFinished() {
				active = append(active, u)
			}
		}
		if side.limit < 0 || len(active) <= side.limit {
			continue
		}
		sort.Slice(active, func(i, j int) bool {
			return UnitValue(active[i], centroid) < UnitValue(active[j], centroid)
		})
		for _, u := range active[:len(active)-side.limit] {
			mask[u.ID()] = true
		}
	}
	return mask
}
