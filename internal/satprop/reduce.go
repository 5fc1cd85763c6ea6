package satprop

import "sort"

// ReduceDB discards the least active half of the learnt clauses, keeping
// any clause currently locked (the reason for some variable's current
// value), exactly as the teacher's Solver.ReduceDB does.
func (db *Database) ReduceDB() {
	learnts := make([]*Clause, 0, len(db.clauses))
	keep := make([]*Clause, 0, len(db.clauses))
	for _, c := range db.clauses {
		if c.learnt {
			learnts = append(learnts, c)
		} else {
			keep = append(keep, c)
		}
	}
	if len(learnts) == 0 {
		return
	}

	sort.Slice(learnts, func(i, j int) bool {
		return learnts[i].activity < learnts[j].activity
	})
	lim := db.claInc / float64(len(learnts))

	i, j := 0, 0
	for ; i < len(learnts)/2; i++ {
		if learnts[i].locked(db.store) {
			learnts[j] = learnts[i]
			j++
		} else {
			db.Remove(learnts[i])
		}
	}
	for ; i < len(learnts); i++ {
		if !learnts[i].locked(db.store) && learnts[i].activity < lim {
			db.Remove(learnts[i])
		} else {
			learnts[j] = learnts[i]
			j++
		}
	}
	learnts = learnts[:j]

	db.clauses = append(keep, learnts...)
}

// NumLearnts reports how many learnt clauses are currently registered.
func (db *Database) NumLearnts() int {
	n := 0
	for _, c := range db.clauses {
		if c.learnt {
			n++
		}
	}
	return n
}
