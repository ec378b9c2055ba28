package lobby

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ABC234", NormalizeCode("  abc234 "))
	assert.Empty(t, NormalizeCode("   "))
}

func TestRandomCode(t *testing.T) {
	t.Parallel()

	for range 100 {
		code := randomCode(CodeAlphabet, CodeLength)
		assert.Len(t, code, CodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(CodeAlphabet, c), "unexpected rune %q", c)
		}
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "0")
	}
}

func TestKeyLock_SerialisesSameKey(t *testing.T) {
	t.Parallel()

	k := newKeyLock()
	unlock := k.Lock("u1")

	acquired := make(chan struct{})
	go func() {
		release := k.Lock("u1")
		close(acquired)
		release()
	}()

	// Other keys are independent
	k.Lock("u2")()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while it was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestKeyLock_ReleasesEntries(t *testing.T) {
	t.Parallel()

	k := newKeyLock()
	var wg sync.WaitGroup
	counter := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("shared")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size())
}
