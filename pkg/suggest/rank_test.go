package suggest

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetter(t *testing.T) {
	tests := []struct {
		name string
		a, b Result
		want bool
	}{
		{"exact beats heavier", Result{"apple", 5, true}, Result{"apply", 9, false}, true},
		{"heavier wins", Result{"hat", 7, false}, Result{"bat", 3, false}, true},
		{"lighter loses", Result{"bat", 3, false}, Result{"hat", 7, false}, false},
		{"tie on key", Result{"bat", 3, false}, Result{"cat", 3, false}, true},
		{"equal", Result{"bat", 3, false}, Result{"bat", 3, false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Better(tt.a, tt.b))
		})
	}
}

func TestTopKOrdering(t *testing.T) {
	top := NewTopK(10)
	for _, r := range []Result{
		{"hat", 7, false},
		{"bat", 3, false},
		{"cat", 3, true},
		{"mat", 3, false},
	} {
		top.Push(r)
	}

	assert.Equal(t, []string{"cat", "hat", "bat", "mat"}, keys(top.Results()))
	assert.Empty(t, top.Results())
}

func TestTopKMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		var all []Result
		n := rng.Intn(200)
		for i := 0; i < n; i++ {
			all = append(all, Result{
				Key:    fmt.Sprintf("k%03d", i),
				Weight: uint64(rng.Intn(10)),
				Exact:  rng.Intn(50) == 0,
			})
		}
		rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

		want := append([]Result(nil), all...)
		sort.Slice(want, func(i, j int) bool { return Better(want[i], want[j]) })
		if len(want) > 10 {
			want = want[:10]
		}

		top := NewTopK(10)
		for _, r := range all {
			top.Push(r)
		}
		got := top.Results()

		assert.Len(t, got, min(n, 10))
		assert.Equal(t, nilIfEmptyResults(want), nilIfEmptyResults(got), "round %d", round)
	}
}

func nilIfEmptyResults(r []Result) []Result {
	if len(r) == 0 {
		return nil
	}
	return r
}

func TestTopKZero(t *testing.T) {
	top := NewTopK(0)
	top.Push(Result{"a", 1, true})
	assert.Empty(t, top.Results())
}

func TestRank(t *testing.T) {
	in := []Result{{"b", 1, false}, {"a", 1, false}, {"c", 5, false}}
	assert.Equal(t, []string{"c", "a", "b"}, keys(Rank(in, 10)))
	assert.Equal(t, []string{"c"}, keys(Rank(in, 1)))
	// input untouched
	assert.Equal(t, "b", in[0].Key)
}
