// Package eventchannel batches events into gzipped payloads and ships them over HTTP.
package eventchannel

import (
	"bytes"
	"compress/gzip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
)

type Metrics struct {
	bufferSize int64
	eventCount int64
}

type Limit struct {
	maxByteSize   int64
	maxEventCount int64
	maxTime       time.Duration
}

// EventChannel buffers events until one of its limits is hit, then hands the compressed batch to
// its Sender.
type EventChannel struct {
	gz   *gzip.Writer
	buff *bytes.Buffer

	ch          chan []byte
	endCh       chan struct{}
	stopped     chan struct{}
	metrics     Metrics
	muxGzBuffer sync.RWMutex
	send        Sender
	limit       Limit
	ticker      *clock.Ticker
	sending     sync.WaitGroup
	closeOnce   sync.Once
}

func NewEventChannel(sender Sender, clk clock.Clock, maxByteSize, maxEventCount int64, maxTime time.Duration) *EventChannel {
	if clk == nil {
		clk = clock.New()
	}
	b := &bytes.Buffer{}

	c := &EventChannel{
		gz:      gzip.NewWriter(b),
		buff:    b,
		ch:      make(chan []byte),
		endCh:   make(chan struct{}),
		stopped: make(chan struct{}),
		send:    sender,
		limit:   Limit{maxByteSize, maxEventCount, maxTime},
		ticker:  clk.Ticker(maxTime),
	}
	go c.start()
	return c
}

// Push blocks until the event is buffered. Events pushed after Close are dropped.
func (c *EventChannel) Push(event []byte) {
	select {
	case c.ch <- event:
	case <-c.stopped:
		glog.V(2).Info("[eventchannel] closed, dropped an event")
	}
}

// Close flushes whatever is buffered and waits for in-flight sends.
func (c *EventChannel) Close() {
	c.closeOnce.Do(func() {
		c.endCh <- struct{}{}
		c.sending.Wait()
	})
}

func (c *EventChannel) buffer(event []byte) {
	c.muxGzBuffer.Lock()
	defer c.muxGzBuffer.Unlock()

	_, err := c.gz.Write(event)
	if err != nil {
		glog.Warning("[eventchannel] fail to compress, skip the event")
		return
	}

	c.metrics.eventCount++
	c.metrics.bufferSize += int64(len(event))
}

func (c *EventChannel) isBufferFull() bool {
	c.muxGzBuffer.RLock()
	defer c.muxGzBuffer.RUnlock()
	return c.metrics.eventCount >= c.limit.maxEventCount || c.metrics.bufferSize >= c.limit.maxByteSize
}

func (c *EventChannel) reset() {
	c.gz.Reset(c.buff)
	c.buff.Reset()

	c.metrics.eventCount = 0
	c.metrics.bufferSize = 0
}

func (c *EventChannel) flush() {
	c.muxGzBuffer.Lock()
	defer c.muxGzBuffer.Unlock()

	if c.metrics.eventCount == 0 || c.metrics.bufferSize == 0 {
		return
	}

	defer c.reset()

	// finish writing gzip header
	err := c.gz.Close()
	if err != nil {
		glog.Warning("[eventchannel] fail to close gzipped buffer")
		return
	}

	payload := make([]byte, c.buff.Len())
	_, err = c.buff.Read(payload)
	if err != nil {
		glog.Warning("[eventchannel] fail to copy the buffer")
		return
	}

	c.sending.Add(1)
	go func() {
		defer c.sending.Done()
		if err := c.send(payload); err != nil {
			glog.Warningf("[eventchannel] dropped a batch: %v", err)
		}
	}()
}

func (c *EventChannel) start() {
	defer close(c.stopped)
	defer c.ticker.Stop()

	for {
		select {
		case <-c.endCh:
			c.flush()
			return

		case event := <-c.ch:
			c.buffer(event)
			if c.isBufferFull() {
				c.flush()
			}

		// time between 2 flushes has passed
		case <-c.ticker.C:
			c.flush()
		}
	}
}
