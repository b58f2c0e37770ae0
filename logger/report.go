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

	"github.com/aws/aws-sdk-go-v2/aws"                              //cloudwatch
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types" //cloudwatch
)

type flowStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFull     int64
	errorsActive   int64
	warnsFull      int64
	warnsActive    int64
	booksFetched   int64
	statsFetched   int64
	productsSynced int64
	alertsRaised   int64
	snapshotWrites int64
	s3Backups      int64
	flows          sync.Map // map[string]*flowStat
)

func recordWarn(component string) {
	if strings.Contains(component, "full") {
		atomic.AddInt64(&warnsFull, 1)
	} else if strings.Contains(component, "active") {
		atomic.AddInt64(&warnsActive, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "full") {
		atomic.AddInt64(&errorsFull, 1)
	} else if strings.Contains(component, "active") {
		atomic.AddInt64(&errorsActive, 1)
	}
}

func IncrementBookFetch(size int) {
	atomic.AddInt64(&booksFetched, 1)
	recordFlow("book_rest", size)
}

func IncrementStatsFetch(size int) {
	atomic.AddInt64(&statsFetched, 1)
	recordFlow("stats_rest", size)
}

func IncrementProductsSync(size int) {
	atomic.AddInt64(&productsSynced, 1)
	recordFlow("products_rest", size)
}

func IncrementAlertRaised() {
	atomic.AddInt64(&alertsRaised, 1)
}

func IncrementSnapshotWrite(size int) {
	atomic.AddInt64(&snapshotWrites, 1)
	recordFlow("snapshot_file", size)
}

func IncrementS3Backup(size int64) {
	atomic.AddInt64(&s3Backups, 1)
	recordFlow("s3_backup", int(size))
}

func recordFlow(name string, size int) {
	v, _ := flows.LoadOrStore(name, &flowStat{})
	fs := v.(*flowStat)
	atomic.AddInt64(&fs.messages, 1)
	atomic.AddInt64(&fs.bytes, int64(size))
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

// StartReport begins periodic logging of system and scan statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	flowData := map[string]map[string]int64{}
	flows.Range(func(k, v any) bool {
		name := k.(string)
		fs := v.(*flowStat)
		flowData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&fs.messages),
			"bytes":    atomic.LoadInt64(&fs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_full_scan":   atomic.LoadInt64(&errorsFull),
		"errors_active_scan": atomic.LoadInt64(&errorsActive),
		"warns_full_scan":    atomic.LoadInt64(&warnsFull),
		"warns_active_scan":  atomic.LoadInt64(&warnsActive),
		"books_fetched":      atomic.LoadInt64(&booksFetched),
		"stats_fetched":      atomic.LoadInt64(&statsFetched),
		"products_synced":    atomic.LoadInt64(&productsSynced),
		"alerts_raised":      atomic.LoadInt64(&alertsRaised),
		"snapshot_writes":    atomic.LoadInt64(&snapshotWrites),
		"s3_backups":         atomic.LoadInt64(&s3Backups),
		"goroutines":         runtime.NumGoroutine(),
		"cpu_percent":        cpuPct,
		"memory_mb":          int64(memStats.Used) / 1024 / 1024,
		"disk_mb":            int64(diskStats.Used) / 1024 / 1024,
		"flows":              flowData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsFullScan"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_full_scan"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsActiveScan"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_active_scan"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsFullScan"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_full_scan"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsActiveScan"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_active_scan"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("BooksFetched"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["books_fetched"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("StatsFetched"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["stats_fetched"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ProductsSynced"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["products_synced"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("AlertsRaised"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["alerts_raised"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("SnapshotWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["snapshot_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("S3Backups"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["s3_backups"].(int64)))},
	)

	for name, stats := range flowData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("FlowMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("FlowBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
