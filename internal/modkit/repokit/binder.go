package repokit

// Binder is a tiny factory that binds a domain repo to a specific
// Queryer. Services bind once at construction for pool backed calls
// and re-bind inside WithTx for tx scoped work
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a function to a Binder
type BindFunc[T any] func(Queryer) T

// Bind calls the underlying function
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }
