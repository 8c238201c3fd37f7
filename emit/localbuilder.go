package emit

// LocalBuilder is one local variable slot declared on a method body. Slots
// are indexed in declaration order; their combined signature is encoded
// when the declaring type bakes, unless the staged body carries an explicit
// local signature.
type LocalBuilder struct {
	method *MethodBuilder
	index  int
	typ    Type
	pinned bool
}

// Index returns the slot index within the method body.
func (lb *LocalBuilder) Index() int { return lb.index }

// LocalType returns the declared slot type.
func (lb *LocalBuilder) LocalType() Type { return lb.typ }

// Pinned reports whether the slot pins its referent.
func (lb *LocalBuilder) Pinned() bool { return lb.pinned }

// Method returns the declaring method.
func (lb *LocalBuilder) Method() *MethodBuilder { return lb.method }
