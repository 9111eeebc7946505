package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	req := require.New(t)
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("conv-1")
			defer km.Unlock("conv-1")
			counter++
		}()
	}
	wg.Wait()

	req.Equal(100, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("conv-1")
	defer km.Unlock("conv-1")

	done := make(chan struct{})
	go func() {
		// Must proceed even though conv-1 is held
		km.Lock("conv-2")
		km.Unlock("conv-2")
		close(done)
	}()

	<-done
}
