package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier(t *testing.T) {
	t.Run("InOrder", func(t *testing.T) {
		var got []int
		n := newNotifier([]Observer{func(s State) { got = append(got, s.Progress) }})

		for i := 0; i <= 100; i++ {
			n.publish(State{Phase: PhaseUploading, Progress: i})
		}
		n.close()

		assert.Len(t, got, 101)
		for i, p := range got {
			assert.Equal(t, i, p)
		}
	})

	t.Run("AllObservers", func(t *testing.T) {
		var a, b int
		n := newNotifier([]Observer{
			func(State) { a++ },
			func(State) { b++ },
		})
		n.publish(State{})
		n.publish(State{})
		n.close()

		assert.Equal(t, 2, a)
		assert.Equal(t, 2, b)
	})

	t.Run("NoObservers", func(t *testing.T) {
		n := newNotifier(nil)
		assert.Nil(t, n)
		n.publish(State{})
		n.close()
	})
}
