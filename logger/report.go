package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type venueStat struct {
	fetches int64
	records int64
	errors  int64
}

var (
	errorsReader    int64
	errorsScheduler int64
	warnsReader     int64
	warnsScheduler  int64
	cyclesCompleted int64
	candidatesOut   int64
	botQueries      int64
	venues          sync.Map // map[string]*venueStat
)

func recordWarn(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&warnsReader, 1)
	} else if strings.Contains(component, "scheduler") {
		atomic.AddInt64(&warnsScheduler, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&errorsReader, 1)
	} else if strings.Contains(component, "scheduler") {
		atomic.AddInt64(&errorsScheduler, 1)
	}
}

// IncrementVenueFetch records a successful fetch of the given number of
// funding snapshots from a venue.
func IncrementVenueFetch(venue string, records int) {
	cs := venueStats(venue)
	atomic.AddInt64(&cs.fetches, 1)
	atomic.AddInt64(&cs.records, int64(records))
}

// IncrementVenueError records a failed fetch for a venue.
func IncrementVenueError(venue string) {
	cs := venueStats(venue)
	atomic.AddInt64(&cs.errors, 1)
}

// IncrementCycle records one completed aggregation cycle and the number of
// candidates it published.
func IncrementCycle(candidates int) {
	atomic.AddInt64(&cyclesCompleted, 1)
	atomic.AddInt64(&candidatesOut, int64(candidates))
}

// IncrementBotQuery records one served front-end query.
func IncrementBotQuery() {
	atomic.AddInt64(&botQueries, 1)
}

func venueStats(venue string) *venueStat {
	v, _ := venues.LoadOrStore(venue, &venueStat{})
	return v.(*venueStat)
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and per-venue statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	venueData := map[string]map[string]int64{}
	venues.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*venueStat)
		venueData[name] = map[string]int64{
			"fetches": atomic.LoadInt64(&cs.fetches),
			"records": atomic.LoadInt64(&cs.records),
			"errors":  atomic.LoadInt64(&cs.errors),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_reader":        atomic.LoadInt64(&errorsReader),
		"errors_scheduler":     atomic.LoadInt64(&errorsScheduler),
		"warns_reader":         atomic.LoadInt64(&warnsReader),
		"warns_scheduler":      atomic.LoadInt64(&warnsScheduler),
		"cycles_completed":     atomic.LoadInt64(&cyclesCompleted),
		"candidates_published": atomic.LoadInt64(&candidatesOut),
		"bot_queries":          atomic.LoadInt64(&botQueries),
		"goroutines":           runtime.NumGoroutine(),
		"cpu_percent":          cpuPct,
		"memory_mb":            int64(memStats.Used) / 1024 / 1024,
		"disk_mb":              int64(diskStats.Used) / 1024 / 1024,
		"venues":               venueData,
		"net_bytes_sent":       int64(bytesSent),
		"net_bytes_recv":       int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("FetchErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_reader"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("CyclesCompleted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["cycles_completed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("CandidatesPublished"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["candidates_published"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("BotQueries"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["bot_queries"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range venueData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("VenueFetches"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Venue"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["fetches"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("VenueRecords"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Venue"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["records"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
