package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list. The assignments always add up to frameH.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance
func NewPerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// This function returns the block height assignment for each tracer in the
// input list. When previous frame information is available the scheduler
// uses the following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(tracers) == 0 {
		return nil
	}

	rates := make([]float64, len(tracers))

	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the block assignments and distribute
	// rows using each tracer's speed estimate
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
		for idx, tr := range tracers {
			rates[idx] = float64(tr.SpeedEstimate())
		}
	} else {
		// Use last frame statistics
		for idx, tr := range tracers {
			stats := tr.Stats()
			blockTime := math.Max(1.0, float64(stats.BlockTime))
			rates[idx] = float64(stats.BlockH) / blockTime
		}
	}

	var total float64 = 0.0
	for _, rate := range rates {
		total += rate
	}

	// Fall back to an even split if no tracer reported any progress
	if total <= 0 {
		for idx := range rates {
			rates[idx] = 1
		}
		total = float64(len(rates))
	}

	var minRows float64 = 1.0
	if frameH < uint32(len(tracers)) {
		minRows = 0
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32 = 0
	for idx, rate := range rates {
		sch.blockAssignment[idx] = uint32(math.Max(minRows, math.Floor(rate*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// In case rows don't add up to the frame height append the missing ones
	// to the first tracer or trim the excess from the largest blocks
	if scheduledRows <= frameH {
		sch.blockAssignment[0] += frameH - scheduledRows
	} else {
		for excess := scheduledRows - frameH; excess > 0; excess-- {
			largest := 0
			for idx, rows := range sch.blockAssignment {
				if rows > sch.blockAssignment[largest] {
					largest = idx
				}
			}
			sch.blockAssignment[largest]--
		}
	}

	return sch.blockAssignment
}
