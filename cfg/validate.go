package cfg

import "fmt"

// Validate checks the structural invariants every CFG must satisfy:
// every referenced block id resolves, predecessor/successor relations
// agree in both directions, the entry block has no predecessors, and
// at least one exit exists. A violation is an internal-invariant
// defect, not a recoverable condition — callers that care (tests,
// debug builds) call this explicitly rather than paying for it on
// every scan.
func (g *Graph) Validate() error {
	for id, b := range g.Blocks {
		if id != b.ID {
			return fmt.Errorf("cfg: block stored under id %d has id %d", id, b.ID)
		}
		for succ, label := range b.Successors {
			target, ok := g.Blocks[succ]
			if !ok {
				return fmt.Errorf("cfg: block %d has dangling successor %d", id, succ)
			}
			if !target.Predecessors[id] {
				return fmt.Errorf("cfg: edge %d->%d (%v) missing reverse predecessor link", id, succ, label)
			}
		}
		for pred := range b.Predecessors {
			source, ok := g.Blocks[pred]
			if !ok {
				return fmt.Errorf("cfg: block %d has dangling predecessor %d", id, pred)
			}
			if _, ok := source.Successors[id]; !ok {
				return fmt.Errorf("cfg: predecessor %d->%d missing forward successor link", pred, id)
			}
		}
	}
	if len(g.Blocks[g.Entry].Predecessors) != 0 {
		return fmt.Errorf("cfg: entry block %d has predecessors", g.Entry)
	}
	if len(g.Exits) == 0 {
		return fmt.Errorf("cfg: no exit blocks recorded")
	}
	return nil
}
