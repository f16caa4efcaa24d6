package respool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Acquisition outcomes reported in the result label of acquireTotal.
const (
	resultAcquired     = "acquired"
	resultNotAvailable = "not_available"
	resultLostRace     = "lost_race"
	resultNotFound     = "not_found"
)

var (
	acquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "respool_acquire_total",
		Help: "TryAcquire calls by outcome.",
	}, []string{"group", "result"})

	allocateAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "respool_allocate_attempts",
		Help:    "Candidates tried per AllocateRandom call.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
	}, []string{"group"})

	refillCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "respool_refill_created_total",
		Help: "Records created by refills.",
	}, []string{"group"})

	availableRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "respool_available_records",
		Help: "Available records seen by the last refill check.",
	}, []string{"group"})
)
