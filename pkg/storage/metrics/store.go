package metrics

import (
	"context"
	"errors"
	"io"
	"time"

	"treevault/pkg/core"
	"treevault/pkg/storage"
	"treevault/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector 持有对象存储的 Prometheus 指标
type Collector struct {
	ops      *prometheus.CounterVec
	errs     *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	putBytes *prometheus.CounterVec
}

// NewCollector 创建并注册指标。reg 为 nil 时不注册。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treevault",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Number of object store operations.",
		}, []string{"op"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treevault",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Number of failed object store operations, not found excluded.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "treevault",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of object store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
		putBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treevault",
			Subsystem: "store",
			Name:      "put_bytes_total",
			Help:      "Bytes handed to Put, per object type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(c.ops, c.errs, c.latency, c.putBytes)
	}
	return c
}

// Store 是给 storage.Store 加上指标的装饰器
type Store struct {
	backend storage.Store
	c       *Collector
}

func Wrap(backend storage.Store, c *Collector) *Store {
	return &Store{backend: backend, c: c}
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.c.ops.WithLabelValues(op).Inc()
	s.c.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.c.errs.WithLabelValues(op).Inc()
	}
}

func (s *Store) Put(ctx context.Context, obj core.Object) error {
	start := time.Now()
	err := s.backend.Put(ctx, obj)
	s.observe("put", start, err)
	if err == nil {
		s.c.putBytes.WithLabelValues(string(obj.Type())).Add(float64(len(obj.Bytes())))
	}
	return err
}

func (s *Store) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := s.backend.Get(ctx, hash)
	s.observe("get", start, err)
	return rc, err
}

func (s *Store) Has(ctx context.Context, hash types.Hash) (bool, error) {
	start := time.Now()
	ok, err := s.backend.Has(ctx, hash)
	s.observe("has", start, err)
	return ok, err
}

func (s *Store) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	start := time.Now()
	h, err := s.backend.ExpandHash(ctx, short)
	s.observe("expand", start, err)
	return h, err
}
