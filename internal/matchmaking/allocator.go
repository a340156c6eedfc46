package matchmaking

import "math"

// PortPool hands out game server ports in [floor, ceiling). Allocation
// pre-increments, so a fresh pool's first port is floor+1; stepping onto the
// ceiling wraps back to floor.
type PortPool struct {
	floor   int
	ceiling int
	last    int
}

func NewPortPool(floor, ceiling int) *PortPool {
	return &PortPool{floor: floor, ceiling: ceiling, last: floor}
}

func (p *PortPool) Next() int {
	p.last++
	if p.last >= p.ceiling || p.last < p.floor {
		p.last = p.floor
	}
	return p.last
}

// Last returns the most recently allocated port.
func (p *PortPool) Last() int {
	return p.last
}

// gameIDLimit leaves headroom below the uint64 maximum before wrapping.
const gameIDLimit = math.MaxUint64 - 10

// GameIDs is a wrapping game id counter. 0 is never handed out.
type GameIDs struct {
	last uint64
}

func (g *GameIDs) Next() uint64 {
	if g.last >= gameIDLimit {
		g.last = 0
	}
	g.last++
	return g.last
}

func (g *GameIDs) Last() uint64 {
	return g.last
}
