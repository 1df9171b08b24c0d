package common

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerFiresOnce(t *testing.T) {
	var count atomic.Int32
	var timer Timer

	timer.Start(20*time.Millisecond, func() { count.Add(1) })
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestTimerRearmsAfterFiring(t *testing.T) {
	var count atomic.Int32
	var timer Timer

	timer.Start(20*time.Millisecond, func() { count.Add(1) })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())

	timer.Reset(20 * time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), count.Load())
}

func TestTimerResetDefersCallback(t *testing.T) {
	var count atomic.Int32
	var timer Timer

	timer.Start(50*time.Millisecond, func() { count.Add(1) })
	time.Sleep(30 * time.Millisecond)
	timer.Reset(50 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestTimerStopPreventsCallback(t *testing.T) {
	var count atomic.Int32
	var timer Timer

	timer.Start(30*time.Millisecond, func() { count.Add(1) })
	timer.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}
