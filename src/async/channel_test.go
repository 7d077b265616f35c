package async

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelFanOut(t *testing.T) {
	ch := NewChannel[int]()

	var first, second []int
	ch.OnReceive(func(v int) { first = append(first, v) })
	ch.OnReceive(func(v int) { second = append(second, v) })

	ch.Send(1)
	ch.Send(2)

	assert.Equal(t, []int{1, 2}, first)
	assert.Equal(t, []int{1, 2}, second)
}

func TestChannelNoReplay(t *testing.T) {
	ch := NewChannel[string]()
	ch.Send("missed")

	var got []string
	ch.OnReceive(func(v string) { got = append(got, v) })
	ch.Send("seen")

	assert.Equal(t, []string{"seen"}, got)
}

func TestChannelCancel(t *testing.T) {
	ch := NewChannel[int]()

	var got []int
	cancel := ch.OnReceive(func(v int) { got = append(got, v) })

	ch.Send(1)
	cancel()
	ch.Send(2)
	cancel() // idempotent

	assert.Equal(t, []int{1}, got)
}

func TestChannelCancelDoesNotAffectOthers(t *testing.T) {
	ch := NewChannel[int]()

	var kept, dropped int
	cancel := ch.OnReceive(func(int) { dropped++ })
	ch.OnReceive(func(int) { kept++ })

	cancel()
	ch.Send(7)

	assert.Equal(t, 0, dropped)
	assert.Equal(t, 1, kept)
}

func TestChannelSubscribeDuringSend(t *testing.T) {
	ch := NewChannel[int]()

	var late int
	ch.OnReceive(func(int) {
		ch.OnReceive(func(int) { late++ })
	})

	ch.Send(1)
	assert.Equal(t, 0, late, "subscriber added mid-send sees only later sends")

	ch.Send(2)
	assert.Equal(t, 1, late)
}

func TestNotification(t *testing.T) {
	n := NewNotification()

	var count int
	cancel := n.OnNotify(func() { count++ })

	n.Notify()
	n.Notify()
	assert.Equal(t, 2, count)

	cancel()
	n.Notify()
	assert.Equal(t, 2, count)
}
