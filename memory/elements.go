package memory

// Elements is a finite witness list of the keys ever written to a collection, in the order they were first seen.
// Input is set when the collection reads through an input collection, whose keys can never be listed in full: the
// list may then be incomplete.
type Elements[K comparable] struct {
	Keys  []K
	Input bool

	seen map[K]struct{}
}

// Add appends key unless it is already listed.
func (e *Elements[K]) Add(key K) {
	if e.seen == nil {
		e.seen = make(map[K]struct{})
	}
	if _, ok := e.seen[key]; ok {
		return
	}
	e.seen[key] = struct{}{}
	e.Keys = append(e.Keys, key)
}

// MarkInput flags the list as possibly incomplete.
func (e *Elements[K]) MarkInput() {
	e.Input = true
}

// Complete indicates whether the list holds every key which may be present.
func (e *Elements[K]) Complete() bool {
	return !e.Input
}

// CollectElements walks the log of c, oldest update first, and lists the keys written by pinpoint updates and those
// contributed by ranged updates. Ranged updates whose adapter cannot enumerate its keys are a contract violation.
func CollectElements[K comparable](c Collection[K]) Elements[K] {
	var elements Elements[K]
	c.CollectInto(&elements)
	return elements
}

// CollectInto adds the keys of c to elements. See CollectElements.
func (c Collection[K]) CollectInto(elements *Elements[K]) {
	if c.IsInput() {
		elements.MarkInput()
	}
	for _, n := range c.oldestFirst() {
		switch node := n.(type) {
		case *PinpointUpdate[K]:
			elements.Add(node.key)
		case *RangedUpdate[K]:
			node.link.collect(elements)
		default:
			Violatef("unknown update node %T", n)
		}
	}
}
