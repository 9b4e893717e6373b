// Package metrics 彙整聊天流程的 prometheus 指標
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fridgechef"

// Metrics 流程指標
type Metrics struct {
	ModelRequests   *prometheus.CounterVec
	ModelDuration   *prometheus.HistogramVec
	Intents         *prometheus.CounterVec
	RecipesParsed   prometheus.Histogram
	Commits         *prometheus.CounterVec
	IngredientDrops *prometheus.CounterVec
}

// New 建立指標並註冊到 registerer；registerer 為 nil 時不註冊
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ModelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Model gateway calls by provider and status.",
		}, []string{"provider", "status"}),
		ModelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Model gateway call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"provider"}),
		Intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Classified user utterances by intent.",
		}, []string{"intent"}),
		RecipesParsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recipes_parsed",
			Help:      "Valid recipes parsed per model response.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Recipe commit outcomes.",
		}, []string{"outcome"}),
		IngredientDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingredient_deletes_total",
			Help:      "Inventory deletions issued by recipe commits.",
		}, []string{"status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ModelRequests,
			m.ModelDuration,
			m.Intents,
			m.RecipesParsed,
			m.Commits,
			m.IngredientDrops,
		)
	}
	return m
}

// Nop 不註冊的指標，供測試與未啟用時使用
func Nop() *Metrics {
	return New(nil)
}
