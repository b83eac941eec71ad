package detector

import (
	"sort"

	"chain-fraud-lab/internal/domain"
)

// TransferGraph is the directed sender->recipient graph of one window.
// Parallel edges collapse and self loops are ignored. It is rebuilt per call.
type TransferGraph struct {
	nodes map[string]*graphNode
}

type graphNode struct {
	out       map[string]struct{}
	in        map[string]struct{}
	lastBlock uint64
}

// BuildGraph builds the transfer graph of the events.
// Events without both a sender and a recipient are skipped.
func BuildGraph(events []domain.Event) *TransferGraph {
	g := &TransferGraph{nodes: make(map[string]*graphNode)}
	for i := range events {
		e := &events[i]
		if e.Sender == "" || e.Recipient == "" || e.Sender == e.Recipient {
			continue
		}
		from := g.node(e.Sender)
		to := g.node(e.Recipient)
		from.out[e.Recipient] = struct{}{}
		to.in[e.Sender] = struct{}{}
		from.lastBlock = max(from.lastBlock, e.BlockNumber)
		to.lastBlock = max(to.lastBlock, e.BlockNumber)
	}
	return g
}

func (g *TransferGraph) node(addr string) *graphNode {
	n, ok := g.nodes[addr]
	if !ok {
		n = &graphNode{
			out: make(map[string]struct{}),
			in:  make(map[string]struct{}),
		}
		g.nodes[addr] = n
	}
	return n
}

// NodeCount returns the number of addresses in the graph.
func (g *TransferGraph) NodeCount() int {
	return len(g.nodes)
}

// Has reports whether the address is a node.
func (g *TransferGraph) Has(addr string) bool {
	_, ok := g.nodes[addr]
	return ok
}

// Nodes returns every address sorted ascending.
func (g *TransferGraph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for addr := range g.nodes {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of distinct counterparties, in either direction.
func (g *TransferGraph) Degree(addr string) int {
	n, ok := g.nodes[addr]
	if !ok {
		return 0
	}
	degree := len(n.out)
	for peer := range n.in {
		if _, both := n.out[peer]; !both {
			degree++
		}
	}
	return degree
}

// InDegree returns the number of distinct senders to addr.
func (g *TransferGraph) InDegree(addr string) int {
	if n, ok := g.nodes[addr]; ok {
		return len(n.in)
	}
	return 0
}

// OutDegree returns the number of distinct recipients of addr.
func (g *TransferGraph) OutDegree(addr string) int {
	if n, ok := g.nodes[addr]; ok {
		return len(n.out)
	}
	return 0
}

// Centrality returns degree / (n - 1), or 0 when the graph has at most one node.
func (g *TransferGraph) Centrality(addr string) float64 {
	n := len(g.nodes)
	if n <= 1 {
		return 0
	}
	return float64(g.Degree(addr)) / float64(n-1)
}

// LastBlock returns the latest block in which addr took part.
func (g *TransferGraph) LastBlock(addr string) uint64 {
	if n, ok := g.nodes[addr]; ok {
		return n.lastBlock
	}
	return 0
}
