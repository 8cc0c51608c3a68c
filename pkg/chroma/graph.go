package chroma

// Node is a region as the pathfinder sees it.
type Node struct {
	ID               int64
	Name             string
	Owner            int // team or NoTeam
	HasBattle        bool
	TravelMultiplier float64
	Borders          map[int64]struct{}
}

// Graph is a snapshot of the world map. It is built fresh from the
// store for each pathfinding query; mutation is not concurrency-safe.
type Graph struct {
	nodes map[int64]*Node
}

func NewGraph() *Graph {
	return &Graph{nodes: make(map[int64]*Node)}
}

func (g *Graph) Add(n *Node) {
	if n.Borders == nil {
		n.Borders = make(map[int64]struct{})
	}
	g.nodes[n.ID] = n
}

func (g *Graph) Node(id int64) *Node {
	return g.nodes[id]
}

// AddBorder records a symmetric adjacency. Unknown ids are ignored.
func (g *Graph) AddBorder(a, b int64) {
	na, nb := g.nodes[a], g.nodes[b]
	if na == nil || nb == nil {
		return
	}
	na.Borders[b] = struct{}{}
	nb.Borders[a] = struct{}{}
}

// Adjacent reports whether a and b share a border.
func (g *Graph) Adjacent(a, b int64) bool {
	na := g.nodes[a]
	if na == nil {
		return false
	}
	_, ok := na.Borders[b]
	return ok
}

// Enterable reports whether a member of team may pass through n.
// Neutral regions are passable only when traverseNeutrals is set;
// an active battle opens a region to both sides.
func (g *Graph) Enterable(n *Node, team int, traverseNeutrals bool) bool {
	if team == NoTeam {
		return true
	}
	if n.Owner == team || n.HasBattle {
		return true
	}
	return traverseNeutrals && n.Owner == NoTeam
}

// FindPath returns the shortest enterable path from src to dst,
// endpoints included, or nil when no such path exists. Ties break on
// insertion order, which the caller controls by Add order.
func (g *Graph) FindPath(src, dst int64, team int, traverseNeutrals bool) []*Node {
	start, goal := g.nodes[src], g.nodes[dst]
	if start == nil || goal == nil {
		return nil
	}
	if !g.Enterable(goal, team, traverseNeutrals) {
		return nil
	}
	if src == dst {
		return []*Node{start}
	}

	prev := map[int64]int64{src: src}
	queue := []int64{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for bid := range g.nodes[cur].Borders {
			if _, seen := prev[bid]; seen {
				continue
			}
			next := g.nodes[bid]
			if next == nil || !g.Enterable(next, team, traverseNeutrals) {
				continue
			}
			prev[bid] = cur
			if bid == dst {
				return g.walkBack(prev, src, dst)
			}
			queue = append(queue, bid)
		}
	}
	return nil
}

func (g *Graph) walkBack(prev map[int64]int64, src, dst int64) []*Node {
	var rev []*Node
	for cur := dst; ; cur = prev[cur] {
		rev = append(rev, g.nodes[cur])
		if cur == src {
			break
		}
	}
	path := make([]*Node, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// Distance is the hop count of the shortest unconditional path between
// two regions, ignoring ownership. Returns -1 when disconnected.
func (g *Graph) Distance(src, dst int64) int {
	path := g.FindPath(src, dst, NoTeam, true)
	if path == nil {
		return -1
	}
	return len(path) - 1
}
