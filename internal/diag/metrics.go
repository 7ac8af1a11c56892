package diag

import "github.com/zeromicro/go-zero/core/metric"

// 指标（go-zero metric，底层为 prometheus 注册表）：
// - slowniki_op_total{comp,stage,result}
// - slowniki_error_total{comp,code}
// - slowniki_op_duration_ms{comp,stage}
var (
	opTotal = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: "slowniki",
		Subsystem: "op",
		Name:      "total",
		Help:      "Component operations, partitioned by component, stage and result.",
		Labels:    []string{"comp", "stage", "result"},
	})
	errorTotal = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: "slowniki",
		Subsystem: "error",
		Name:      "total",
		Help:      "Errors raised, partitioned by component and error code.",
		Labels:    []string{"comp", "code"},
	})
	opDuration = metric.NewHistogramVec(&metric.HistogramVecOpts{
		Namespace: "slowniki",
		Subsystem: "op",
		Name:      "duration_ms",
		Help:      "Component operation duration in milliseconds.",
		Labels:    []string{"comp", "stage"},
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
	})
)

// IncOp 累加操作计数（result=success|error|skip）。
func IncOp(comp, stage, result string) {
	opTotal.Inc(comp, stage, result)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	errorTotal.Inc(comp, code)
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.Observe(durMS, comp, stage)
}
