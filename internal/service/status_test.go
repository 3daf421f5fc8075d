package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/mdouchement/starving/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestStatusIndicator(t *testing.T) {
	status := service.NewStatusIndicator(20 * time.Millisecond)
	assert.Equal(t, service.StateIdle, status.Status().State)

	var (
		mu          sync.Mutex
		transitions []string
	)
	status.Observe(func(s service.SyncStatus) {
		mu.Lock()
		transitions = append(transitions, s.String())
		mu.Unlock()
	})

	status.Syncing()
	assert.Equal(t, service.StateSyncing, status.Status().State)

	status.Fail("boom")
	assert.Equal(t, service.SyncStatus{State: service.StateError, Message: "boom"}, status.Status())

	assert.Eventually(t, func() bool {
		return status.Status().State == service.StateIdle
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"syncing", "error: boom", "idle"}, transitions)
}

func TestStatusIndicator_ConcurrentTransitions(t *testing.T) {
	status := service.NewStatusIndicator(time.Hour)

	var (
		mu          sync.Mutex
		transitions []service.SyncStatus
	)
	status.Observe(func(s service.SyncStatus) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			status.Syncing()
		}()
		go func() {
			defer wg.Done()
			status.Fail("could not mirror item")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, transitions, 100)
	assert.Equal(t, status.Status(), transitions[len(transitions)-1], "observers see the transitions in order")
}

func TestStatusIndicator_NewPassCancelsRevert(t *testing.T) {
	status := service.NewStatusIndicator(30 * time.Millisecond)

	status.Succeed()
	status.Syncing()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, service.StateSyncing, status.Status().State)
}

func TestStatusIndicator_DefaultDelay(t *testing.T) {
	status := service.NewStatusIndicator(0)
	status.Succeed()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, service.StateSuccess, status.Status().State)
}

func TestOutcome(t *testing.T) {
	assert.False(t, service.OK().IsDegraded())
	assert.True(t, service.Degraded(assert.AnError).IsDegraded())
}

func TestCurrentUser(t *testing.T) {
	user := service.NewCurrentUser("")
	_, ok := user.UserID()
	assert.False(t, ok)

	user.SignIn("u1")
	id, ok := user.UserID()
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	user.SignOut()
	_, ok = user.UserID()
	assert.False(t, ok)

	id, ok = service.StaticUser("u2").UserID()
	assert.True(t, ok)
	assert.Equal(t, "u2", id)
}
