package quick

import (
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/reach"
)

type journalEntry struct {
	m    *reach.Map
	idx  int32
	step int8
	dir  core.Direction
}

// journal records every reachability cell a patch overwrites so undo can
// put it back without running the patch in reverse.
type journal struct {
	cur     *reach.Map
	entries []journalEntry
}

func (j *journal) Record(idx int, oldStep int8, oldDir core.Direction) {
	j.entries = append(j.entries, journalEntry{m: j.cur, idx: int32(idx), step: oldStep, dir: oldDir})
}

// rewind restores entries back to length mark, newest first.
func (j *journal) rewind(mark int) {
	for i := len(j.entries) - 1; i >= mark; i-- {
		e := &j.entries[i]
		e.m.Step[e.idx] = e.step
		e.m.Dir[e.idx] = e.dir
		e.m = nil
	}
	j.entries = j.entries[:mark]
}
