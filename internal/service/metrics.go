package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	salesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farms_sales_created_total",
		Help: "Sales recorded, by payment method.",
	}, []string{"payment_method"})

	insufficientStock = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farms_sales_insufficient_stock_total",
		Help: "Sales rejected because the inventory could not cover them.",
	})

	stockMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farms_stock_movements_total",
		Help: "Stock movements appended, by kind.",
	}, []string{"kind"})
)
