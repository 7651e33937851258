package cache

// lruNode is one element of the doubly linked recency list.
type lruNode[K comparable] struct {
	key        K
	prev, next *lruNode[K]
}

// lruList is a doubly linked list ordered most- to least-recently used.
// It uses sentinel head/tail nodes so insert and remove need no nil checks.
// Not safe for concurrent use; the owning shard's mutex protects it.
type lruList[K comparable] struct {
	head, tail *lruNode[K]
	size       int
}

func newLRUList[K comparable]() *lruList[K] {
	l := &lruList[K]{
		head: &lruNode[K]{},
		tail: &lruNode[K]{},
	}
	l.head.next = l.tail
	l.tail.prev = l.head
	return l
}

func (l *lruList[K]) len() int { return l.size }

// pushFront inserts a new node with the given key at the front.
func (l *lruList[K]) pushFront(key K) *lruNode[K] {
	n := &lruNode[K]{key: key}
	n.prev = l.head
	n.next = l.head.next
	l.head.next.prev = n
	l.head.next = n
	l.size++
	return n
}

// moveToFront marks a node as most recently used.
func (l *lruList[K]) moveToFront(n *lruNode[K]) {
	if l.head.next == n {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = l.head
	n.next = l.head.next
	l.head.next.prev = n
	l.head.next = n
}

// remove unlinks a node from the list.
func (l *lruList[K]) remove(n *lruNode[K]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
	l.size--
}

// removeOldest unlinks and returns the least recently used key.
func (l *lruList[K]) removeOldest() (K, bool) {
	if l.size == 0 {
		var zero K
		return zero, false
	}
	n := l.tail.prev
	l.remove(n)
	return n.key, true
}

// clear empties the list.
func (l *lruList[K]) clear() {
	l.head.next = l.tail
	l.tail.prev = l.head
	l.size = 0
}
