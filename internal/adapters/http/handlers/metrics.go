package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QuoteCounter reports the current store size.
type QuoteCounter interface {
	Len() int
}

// RegisterStoreMetrics registers the quotebook_quotes gauge, read on every scrape.
func RegisterStoreMetrics(reg prometheus.Registerer, store QuoteCounter) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "quotebook_quotes",
			Help: "Number of quotes in the store.",
		},
		func() float64 { return float64(store.Len()) },
	))
}
