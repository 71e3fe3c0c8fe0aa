package ran

import (
	"fmt"
	"sync"
)

// A Deliverer accepts messages that arrive from the channel.
type Deliverer interface {
	Deliver(m *SealedMessage)
}

// A Directory resolves a node name to the place its messages go.
type Directory interface {
	Lookup(name string) (Deliverer, bool)
}

// NodeDirectory is a Directory of nodes. It is filled while a scenario is
// assembled and read by every sender afterwards.
type NodeDirectory struct {
	lock  sync.RWMutex
	nodes map[string]*Node
	order []*Node
}

// NewNodeDirectory creates an empty directory.
func NewNodeDirectory() *NodeDirectory {
	return &NodeDirectory{nodes: make(map[string]*Node)}
}

// Register adds a node under its name.
func (d *NodeDirectory) Register(n *Node) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.nodes[n.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name())
	}

	d.nodes[n.Name()] = n
	d.order = append(d.order, n)

	return nil
}

// Lookup implements Directory.
func (d *NodeDirectory) Lookup(name string) (Deliverer, bool) {
	n, ok := d.Node(name)
	if !ok {
		return nil, false
	}

	return n, true
}

// Node returns the node with the given name.
func (d *NodeDirectory) Node(name string) (*Node, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	n, ok := d.nodes[name]

	return n, ok
}

// Nodes lists the nodes in registration order.
func (d *NodeDirectory) Nodes() []*Node {
	d.lock.RLock()
	defer d.lock.RUnlock()

	out := make([]*Node, len(d.order))
	copy(out, d.order)

	return out
}
