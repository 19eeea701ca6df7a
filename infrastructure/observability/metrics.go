package observability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"betledger/config"
	"betledger/domain/entities"
	"betledger/domain/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	wagerSettlementsCounter    metric.Int64Counter
	settlementRunsCounter      metric.Int64Counter
	settlementRunDurationHist  metric.Float64Histogram
	deadLettersCounter         metric.Int64Counter
	wagersPendingGauge         metric.Int64UpDownCounter
	balanceTransactionsCounter metric.Int64Counter
	gameSessionsCounter        metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Println("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Println("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Println("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.Printf("Using OTLP metric exporter: %s", mp.config.OTelOTLPEndpoint)

	case "none":
		log.Println("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.start(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Println("Metrics provider initialized successfully")
	return nil
}

// start builds the meter provider around reader. Caller holds mu.
func (mp *MetricsProvider) start(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter(MetricPrefix)

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.wagerSettlementsCounter, err = mp.meter.Int64Counter(
		WagerSettlementsTotal,
		metric.WithDescription("Wagers examined by settlement, by family and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create wager settlements counter: %w", err)
	}

	mp.settlementRunsCounter, err = mp.meter.Int64Counter(
		SettlementRunsTotal,
		metric.WithDescription("Settlement passes, by family and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement runs counter: %w", err)
	}

	mp.settlementRunDurationHist, err = mp.meter.Float64Histogram(
		SettlementRunDuration,
		metric.WithDescription("Duration of settlement passes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement duration histogram: %w", err)
	}

	mp.deadLettersCounter, err = mp.meter.Int64Counter(
		DeadLettersTotal,
		metric.WithDescription("Matches parked after repeated settlement failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create dead letters counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior
	mp.wagersPendingGauge, err = mp.meter.Int64UpDownCounter(
		WagersPending,
		metric.WithDescription("Wagers placed and not yet settled since start"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending wagers gauge: %w", err)
	}

	mp.balanceTransactionsCounter, err = mp.meter.Int64Counter(
		BalanceTransactionsTotal,
		metric.WithDescription("Ledger entries written, by transaction type"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transactions counter: %w", err)
	}

	mp.gameSessionsCounter, err = mp.meter.Int64Counter(
		GameSessionsTotal,
		metric.WithDescription("Finished mini-game sessions, by game and final state"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create game sessions counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordWagerSettlement records one wager's settlement status
func (mp *MetricsProvider) RecordWagerSettlement(family entities.MarketFamily, status entities.SettlementStatus) {
	if !mp.isEnabled() {
		return
	}

	mp.wagerSettlementsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelFamily, string(family)),
			attribute.String(LabelStatus, string(status)),
		),
	)
}

// RecordSettlementRun records one settlement pass
func (mp *MetricsProvider) RecordSettlementRun(family entities.MarketFamily, duration time.Duration, err error) {
	if !mp.isEnabled() {
		return
	}

	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	attrs := metric.WithAttributes(
		attribute.String(LabelFamily, string(family)),
		attribute.String(LabelOutcome, outcome),
	)

	mp.settlementRunsCounter.Add(context.Background(), 1, attrs)
	mp.settlementRunDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// Subscribe records domain events as they are committed
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
		e := event.(events.BalanceChangeEvent)
		mp.add(ctx, mp.balanceTransactionsCounter, 1, attribute.String(LabelType, string(e.TransactionType)))
	})
	bus.Subscribe(events.EventTypeWagerPlaced, func(ctx context.Context, event events.Event) {
		e := event.(events.WagerPlacedEvent)
		mp.addUpDown(ctx, 1, attribute.String(LabelMarket, string(e.MarketType)))
	})
	bus.Subscribe(events.EventTypeWagerSettled, func(ctx context.Context, event events.Event) {
		e := event.(events.WagerSettledEvent)
		mp.addUpDown(ctx, -1, attribute.String(LabelMarket, string(e.MarketType)))
	})
	bus.Subscribe(events.EventTypeGameSessionCompleted, func(ctx context.Context, event events.Event) {
		e := event.(events.GameSessionCompletedEvent)
		mp.add(ctx, mp.gameSessionsCounter, 1,
			attribute.String(LabelGame, string(e.GameType)),
			attribute.String(LabelState, string(e.State)),
		)
	})
	bus.Subscribe(events.EventTypeSettlementDeadLettered, func(ctx context.Context, event events.Event) {
		e := event.(events.SettlementDeadLetteredEvent)
		mp.add(ctx, mp.deadLettersCounter, 1, attribute.String(LabelFamily, string(e.Family)))
	})
}

func (mp *MetricsProvider) add(ctx context.Context, counter metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if !mp.isEnabled() {
		return
	}
	counter.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (mp *MetricsProvider) addUpDown(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	if !mp.isEnabled() {
		return
	}
	mp.wagersPendingGauge.Add(ctx, n, metric.WithAttributes(attrs...))
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
