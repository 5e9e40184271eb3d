// Package agents defines the consumer-side interface the step environment
// drives; strategy implementations (noise, momentum, random samplers) are
// deliberately out of scope (spec §1) and are never implemented here.
package agents

import "math/rand"

// Agent observes env state and may submit order instructions, then returns.
// T is the environment type an implementation is built against — typically
// *simenv.Env or *simenv.MarketEnv, left generic here so this package need
// not import internal/simenv; internal/runner is the package that pairs an
// AgentSet with a concrete env.
type Agent[T any] interface {
	Update(env T, rng *rand.Rand)
}

// AgentSet has the same single-method contract as Agent; callers of
// internal/runner pass a value satisfying this as "the agents" driving a
// simulation. A homogeneous herd can implement it directly; a heterogeneous
// group should use Group, below.
type AgentSet[T any] interface {
	Update(env T, rng *rand.Rand)
}

// Group is a declaration-order composite of agents, standing in for the
// field-walk code generation the source crate uses to expand
// self.<field>.update(env, rng) per struct field (spec §9). Go has no
// compile-time field-reflection macro in the corpus this was ported from,
// so Group takes the language-neutral "explicit manual composition" option
// spec §9 calls out: callers build the slice in the order they want agents
// updated, and that order is preserved exactly.
type Group[T any] []AgentSet[T]

// Update calls Update on every member, in slice order.
func (g Group[T]) Update(env T, rng *rand.Rand) {
	for _, a := range g {
		a.Update(env, rng)
	}
}

// Func adapts a plain function to the AgentSet interface, for agents with
// no state of their own beyond what a closure captures.
type Func[T any] func(env T, rng *rand.Rand)

// Update calls f.
func (f Func[T]) Update(env T, rng *rand.Rand) { f(env, rng) }
