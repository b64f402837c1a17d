package async

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPromiseResolveWakesWaiters(t *testing.T) {
	var p = New()
	var woke = make(chan struct{})

	go func() {
		p.Wait()
		close(woke)
	}()
	p.Resolve()
	<-woke

	// Further waits on a resolved Promise don't block.
	p.Wait()
	assert.True(t, p.WaitWithTimeout(time.Millisecond))
}

func TestPromiseWaitWithTimeout(t *testing.T) {
	assert.False(t, New().WaitWithTimeout(time.Microsecond))
	assert.True(t, Resolved().WaitWithTimeout(time.Minute))
}
