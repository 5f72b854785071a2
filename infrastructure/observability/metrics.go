package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"rewardledger/config"
	"rewardledger/events"
	"rewardledger/service"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	reader        sdkmetric.Reader
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	ledgerEntriesCounter   metric.Int64Counter
	ledgerVolumeCounter    metric.Int64Counter
	charitySkimmedCounter  metric.Int64Counter
	activityTicksCounter   metric.Int64Counter
	rewardsClaimedCounter  metric.Int64Counter
	rewardCoinsCounter     metric.Int64Counter
	vipTransitionsCounter  metric.Int64Counter
	renewalSweepsCounter   metric.Int64Counter
	renewalOutcomesCounter metric.Int64Counter
	natsPublishedCounter   metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// newMetricsProviderWithReader exports through reader instead of the configured exporter
func newMetricsProviderWithReader(cfg *config.Config, reader sdkmetric.Reader) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
		reader: reader,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		var exporter sdkmetric.Exporter
		switch mp.config.OTelExporterType {
		case "console":
			exporter, err = stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create console exporter: %w", err)
			}
			log.Info("Using console metric exporter")

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
			log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

		case "none":
			log.Info("Metrics export disabled (exporter_type='none')")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
		}

		reader = sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
		)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("rewardledger")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) counter(target *metric.Int64Counter, name, description string) error {
	c, err := mp.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	*target = c
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	instruments := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ledgerEntriesCounter, LedgerEntriesTotal, "Ledger entries applied to wallet counters"},
		{&mp.ledgerVolumeCounter, LedgerVolumeTotal, "Absolute units moved by ledger entries"},
		{&mp.charitySkimmedCounter, CharitySkimmedTotal, "Units credited to the charity pool"},
		{&mp.activityTicksCounter, ActivityTicksTotal, "Activity heartbeats received"},
		{&mp.rewardsClaimedCounter, RewardsClaimedTotal, "Activity rewards claimed"},
		{&mp.rewardCoinsCounter, RewardCoinsPaidTotal, "Coins paid out by activity rewards"},
		{&mp.vipTransitionsCounter, VipTransitionsTotal, "VIP subscription state transitions"},
		{&mp.renewalSweepsCounter, RenewalSweepsTotal, "Renewal sweep passes"},
		{&mp.renewalOutcomesCounter, RenewalOutcomeTotal, "Per-account renewal outcomes"},
		{&mp.natsPublishedCounter, NATSMessagesPublishedTotal, "Events forwarded to NATS"},
	}
	for _, in := range instruments {
		if err := mp.counter(in.target, in.name, in.description); err != nil {
			return err
		}
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

// Subscribe records every engine event published on bus
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		mp.RecordEvent(ctx, event)
	})
}

// RecordEvent updates the counters an event feeds
func (mp *MetricsProvider) RecordEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.LedgerEntryAppliedEvent:
		attrs := metric.WithAttributes(
			attribute.String(LabelKind, string(e.Kind)),
			attribute.String(LabelCurrencyField, string(e.CurrencyField)),
		)
		amount := e.Amount
		if amount < 0 {
			amount = -amount
		}
		mp.ledgerEntriesCounter.Add(ctx, 1, attrs)
		mp.ledgerVolumeCounter.Add(ctx, amount, attrs)
	case events.CharitySkimmedEvent:
		mp.charitySkimmedCounter.Add(ctx, e.Amount)
	case events.ActivityTickEvent:
		mp.activityTicksCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelCounted, strconv.FormatBool(e.Counted)),
		))
	case events.RewardClaimedEvent:
		mp.rewardsClaimedCounter.Add(ctx, 1)
		mp.rewardCoinsCounter.Add(ctx, e.RewardAmount)
	case events.VipSubscribedEvent, events.VipRenewedEvent, events.VipExpiredEvent, events.AutoRenewChangedEvent:
		mp.vipTransitionsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelEventType, string(event.Type())),
		))
	}
}

// RecordSweep counts one renewal sweep pass
func (mp *MetricsProvider) RecordSweep(report *service.SweepReport) {
	if !mp.isEnabled() || report == nil {
		return
	}

	ctx := context.Background()
	mp.renewalSweepsCounter.Add(ctx, 1)
	for outcome, n := range map[string]int{
		OutcomeRenewed: report.Renewed,
		OutcomeExpired: report.Expired,
		OutcomeSkipped: report.Skipped,
		OutcomeFailed:  report.Failed,
	} {
		if n == 0 {
			continue
		}
		mp.renewalOutcomesCounter.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String(LabelOutcome, outcome),
		))
	}
}

// RecordNATSMessagePublished records an event forwarded to NATS
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType events.EventType) {
	if !mp.isEnabled() {
		return
	}

	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, string(eventType)),
		),
	)
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
