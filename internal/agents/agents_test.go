package agents

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingAgent struct {
	id   int
	seen *[]int
}

func (a recordingAgent) Update(env *[]int, rng *rand.Rand) {
	*a.seen = append(*a.seen, a.id)
}

func TestGroupUpdatesInDeclarationOrder(t *testing.T) {
	var seen []int
	env := &seen

	group := Group[*[]int]{
		recordingAgent{id: 1, seen: &seen},
		recordingAgent{id: 2, seen: &seen},
		recordingAgent{id: 3, seen: &seen},
	}

	rng := rand.New(rand.NewSource(1))
	group.Update(env, rng)

	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestFuncAdaptsPlainFunction(t *testing.T) {
	called := false
	f := Func[*[]int](func(env *[]int, rng *rand.Rand) { called = true })

	f.Update(&[]int{}, rand.New(rand.NewSource(1)))

	assert.True(t, called)
}
