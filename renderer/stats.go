package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/achilleasa/lanetrace/asset/scene"
	"github.com/olekukonko/tablewriter"
)

type TracerStat struct {
	// The tracer id.
	Id string

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for assigned block
	RenderTime time.Duration

	// Traced rays and traversal statistics for assigned block.
	Rays     uint64
	Counters scene.Counters
}

type FrameStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// Total render time for entire frame.
	RenderTime time.Duration

	// Totals across all tracers.
	Rays     uint64
	Counters scene.Counters
}

// Get the number of traced rays per second.
func (fs FrameStats) RaysPerSecond() float64 {
	if fs.RenderTime <= 0 {
		return 0
	}
	return float64(fs.Rays) / fs.RenderTime.Seconds()
}

// Merge the stats of another frame into fs. Per-tracer stats are summed by
// position so both frames must be rendered by the same tracer set.
func (fs *FrameStats) Add(other FrameStats) {
	if len(fs.Tracers) == 0 {
		fs.Tracers = make([]TracerStat, len(other.Tracers))
		for index, stat := range other.Tracers {
			fs.Tracers[index].Id = stat.Id
		}
	}

	for index := range fs.Tracers {
		if index >= len(other.Tracers) {
			break
		}
		stat := &fs.Tracers[index]
		stat.BlockH += other.Tracers[index].BlockH
		stat.RenderTime += other.Tracers[index].RenderTime
		stat.Rays += other.Tracers[index].Rays
		stat.Counters.Add(other.Tracers[index].Counters)
	}

	fs.RenderTime += other.RenderTime
	fs.Rays += other.Rays
	fs.Counters.Add(other.Counters)

	var totalRows uint32
	for _, stat := range fs.Tracers {
		totalRows += stat.BlockH
	}
	for index := range fs.Tracers {
		if totalRows > 0 {
			fs.Tracers[index].FramePercent = 100 * float32(fs.Tracers[index].BlockH) / float32(totalRows)
		}
	}
}

// Render frame statistics as a table.
func (fs FrameStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Render time", "Rays", "Node visits", "Leaf tests", "Lane util"})
	for _, stat := range fs.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			stat.RenderTime.String(),
			fmt.Sprintf("%d", stat.Rays),
			fmt.Sprintf("%d", stat.Counters.NodeVisits),
			fmt.Sprintf("%d", stat.Counters.LeafTests),
			fmt.Sprintf("%3.1f %%", 100*stat.Counters.LaneUtilization()),
		})
	}
	table.SetFooter([]string{
		"TOTAL", "", "", fs.RenderTime.String(),
		fmt.Sprintf("%d", fs.Rays),
		fmt.Sprintf("%d", fs.Counters.NodeVisits),
		fmt.Sprintf("%d", fs.Counters.LeafTests),
		fmt.Sprintf("%3.1f %%", 100*fs.Counters.LaneUtilization()),
	})

	table.Render()
	return buf.String()
}
