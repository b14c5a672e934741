// Package metrics 提供 Prometheus 文本格式的监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 指标名称
const (
	HTTPRequestsTotal     = "shiftassign_http_requests_total"
	HTTPRequestDuration   = "shiftassign_http_request_duration_seconds"
	PreviewTotal          = "shiftassign_preview_total"
	PreviewDuration       = "shiftassign_preview_duration_seconds"
	ApplyItemsTotal       = "shiftassign_apply_items_total"
	RejectionReasonsTotal = "shiftassign_rejection_reasons_total"
	OverridesTotal        = "shiftassign_overrides_total"
	PreviewCacheTotal     = "shiftassign_preview_cache_total"
	FairnessGini          = "shiftassign_fairness_gini"
	CoverageRate          = "shiftassign_coverage_rate"
	AdvisoryStatus        = "shiftassign_advisory_runs_total"
	DBConnections         = "shiftassign_db_connections"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *Registry
	once     sync.Once
)

// GetRegistry 获取全局注册表
func GetRegistry() *Registry {
	once.Do(func() {
		registry = NewRegistry()
		registerDefaults(registry)
	})
	return registry
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

func registerDefaults(r *Registry) {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "route", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "route"},
		[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0})

	r.NewCounter(PreviewTotal, "周预览次数", []string{"status"})
	r.NewHistogram(PreviewDuration, "周预览耗时",
		[]string{},
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})

	r.NewCounter(ApplyItemsTotal, "落地条目数", []string{"result"})
	r.NewCounter(RejectionReasonsTotal, "拒绝原因次数", []string{"reason"})
	r.NewCounter(OverridesTotal, "人工改选次数", []string{})
	r.NewCounter(PreviewCacheTotal, "预览缓存访问", []string{"result"})
	r.NewCounter(AdvisoryStatus, "权重建议结果", []string{"status"})

	r.NewGauge(FairnessGini, "推荐工时基尼系数", []string{"tenant_id"})
	r.NewGauge(CoverageRate, "推荐覆盖率", []string{"tenant_id"})
	r.NewGauge(DBConnections, "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值，counts 按桶独立计数，输出时累加
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	idx := len(h.Buckets)
	for i, bucket := range h.Buckets {
		if value <= bucket {
			idx = i
			break
		}
	}
	h.counts[key][idx]++
	h.sums[key] += value
}

// Count 返回观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, c := range h.counts[labelKey(labelValues)] {
		total += c
	}
	return total
}

// labelKey 标签值以 \x1f 拼接，避免与值中的逗号冲突
func labelKey(labels []string) string {
	return strings.Join(labels, "\x1f")
}

func splitLabelKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, "\x1f")
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	vals := splitLabelKey(key)
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Render 以 Prometheus 文本格式输出全部指标，按名称排序
func (r *Registry) Render(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
		c.mu.RLock()
		for _, key := range sortedKeys(c.values) {
			writeSample(w, c.Name, c.Labels, key, "", c.values[key])
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
		g.mu.RLock()
		for _, key := range sortedKeys(g.values) {
			writeSample(w, g.Name, g.Labels, key, "", g.values[key])
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		h := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
		h.mu.RLock()
		for _, key := range sortedKeys(h.counts) {
			counts := h.counts[key]
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				writeSample(w, h.Name+"_bucket", h.Labels, key, `le="`+formatFloat(bucket)+`"`, float64(cumulative))
			}
			cumulative += counts[len(h.Buckets)]
			writeSample(w, h.Name+"_bucket", h.Labels, key, `le="+Inf"`, float64(cumulative))
			writeSample(w, h.Name+"_sum", h.Labels, key, "", h.sums[key])
			writeSample(w, h.Name+"_count", h.Labels, key, "", float64(cumulative))
		}
		h.mu.RUnlock()
	}
}

func writeSample(w io.Writer, name string, labels []string, key, extra string, value float64) {
	var parts []string
	if len(labels) > 0 {
		parts = append(parts, formatLabels(labels, key))
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	if len(parts) == 0 {
		fmt.Fprintf(w, "%s %s\n", name, formatFloat(value))
		return
	}
	fmt.Fprintf(w, "%s{%s} %s\n", name, strings.Join(parts, ","), formatFloat(value))
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		GetRegistry().Render(w)
	})
}

// RecordRequestMetrics 记录请求指标，route 为路由模板
func RecordRequestMetrics(method, route string, status int, duration time.Duration) {
	reg := GetRegistry()
	reg.GetCounter(HTTPRequestsTotal).Inc(method, route, strconv.Itoa(status))
	reg.GetHistogram(HTTPRequestDuration).Observe(duration.Seconds(), method, route)
}

// RecordPreview 记录一次周预览
func RecordPreview(success bool, duration time.Duration) {
	reg := GetRegistry()
	status := "success"
	if !success {
		status = "failure"
	}
	reg.GetCounter(PreviewTotal).Inc(status)
	reg.GetHistogram(PreviewDuration).Observe(duration.Seconds())
}

// RecordFairness 记录推荐工时基尼系数与覆盖率
func RecordFairness(tenantID string, gini, coverage float64) {
	reg := GetRegistry()
	reg.GetGauge(FairnessGini).Set(gini, tenantID)
	reg.GetGauge(CoverageRate).Set(coverage, tenantID)
}

// RecordApply 记录一次落地的结果
func RecordApply(applied, overrides int, rejections [][]string) {
	reg := GetRegistry()
	items := reg.GetCounter(ApplyItemsTotal)
	items.Add(float64(applied), "applied")
	items.Add(float64(len(rejections)), "rejected")
	reg.GetCounter(OverridesTotal).Add(float64(overrides))

	reasons := reg.GetCounter(RejectionReasonsTotal)
	for _, rs := range rejections {
		for _, reason := range rs {
			reasons.Inc(reason)
		}
	}
}

// RecordCacheLookup 记录预览缓存命中情况
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	GetRegistry().GetCounter(PreviewCacheTotal).Inc(result)
}

// RecordAdvisory 记录一次权重建议结果
func RecordAdvisory(status string) {
	GetRegistry().GetCounter(AdvisoryStatus).Inc(status)
}

// SetDBConnections 记录连接池状态
func SetDBConnections(inUse, idle int) {
	g := GetRegistry().GetGauge(DBConnections)
	g.Set(float64(inUse), "in_use")
	g.Set(float64(idle), "idle")
}
