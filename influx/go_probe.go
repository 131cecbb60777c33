// Copyright (c) 2022 Exograd SAS.
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY
// SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR
// IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

package influx

import (
	"math"
	"runtime"
	"time"
)

func (c *Client) goProbeMain() {
	defer c.wg.Done()

	timer := time.NewTicker(time.Second)
	defer timer.Stop()

	for {
		select {
		case <-c.stopChan:
			return

		case <-timer.C:
			ts := c.Cfg.Precision.Timestamp(time.Now())

			points := Points{
				goProbeGoroutinePoint(ts),
				goProbeMemPoint(ts),
			}

			c.EnqueuePoints(points)
		}
	}
}

func goProbeGoroutinePoint(ts int64) *Point {
	return NewPointWithTimestamp("go_goroutines", ts).
		AddField("count", Integer(int64(runtime.NumGoroutine())))
}

func goProbeMemPoint(ts int64) *Point {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return NewPointWithTimestamp("go_memory", ts).
		AddField("heap_alloc", unsignedField(stats.HeapAlloc)).
		AddField("heap_sys", unsignedField(stats.HeapSys)).
		AddField("heap_idle", unsignedField(stats.HeapIdle)).
		AddField("heap_in_use", unsignedField(stats.HeapInuse)).
		AddField("heap_released", unsignedField(stats.HeapReleased)).
		AddField("stack_in_use", unsignedField(stats.StackInuse)).
		AddField("stack_sys", unsignedField(stats.StackSys)).
		AddField("nb_gcs", Integer(int64(stats.NumGC))).
		AddField("gc_cpu_time_fraction", Float(stats.GCCPUFraction))
}

// Memory statistics cannot reach 2^63 bytes; we still clamp them.
func unsignedField(u uint64) Value {
	v, err := unsignedValue(u)
	if err != nil {
		return Integer(math.MaxInt64)
	}

	return v
}
