package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/taxidispatch/core/metrics"
	"github.com/kilianp07/taxidispatch/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving the points.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordAllocation writes one fare_allocation point per award.
func (s *InfluxSink) RecordAllocation(recs []coremetrics.AllocationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("fare_allocation").
			AddTag("agent_id", string(r.Agent)).
			AddTag("reason", r.Reason).
			AddTag("fare", r.Key.String()).
			AddTag("component", "allocation_engine").
			AddField("price", round3(r.Price)).
			AddField("bidders", r.Bidders).
			AddField("tick", r.Tick).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordBroadcast writes a fare_broadcast point.
func (s *InfluxSink) RecordBroadcast(ev coremetrics.BroadcastEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fare_broadcast").
		AddTag("fare", ev.Key.String()).
		AddTag("component", "pricing_engine").
		AddField("price", round3(ev.Price)).
		AddField("notified", ev.Notified).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDeferral writes an allocation_deferred point.
func (s *InfluxSink) RecordDeferral(ev coremetrics.DeferralEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("allocation_deferred").
		AddTag("fare", ev.Key.String()).
		AddTag("reason", ev.Reason).
		AddTag("component", "allocation_engine").
		AddField("tick", ev.Tick).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPayment writes a payment_received point.
func (s *InfluxSink) RecordPayment(ev coremetrics.PaymentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("payment_received").
		AddTag("component", "revenue_ledger").
		AddField("amount", round3(ev.Amount)).
		AddField("total", round3(ev.Total)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRevenue writes the dispatcher revenue and one point per agent.
func (s *InfluxSink) RecordRevenue(snap coremetrics.RevenueSnapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(snap.Report.Agents)+1)
	points = append(points, write.NewPointWithMeasurement("revenue_report").
		AddTag("source", "dispatcher").
		AddField("revenue", round3(snap.Report.Dispatcher)).
		AddField("total", round3(snap.Report.Total)).
		AddField("tick", snap.Tick).
		SetTime(snap.Time))
	for _, a := range snap.Report.Agents {
		points = append(points, write.NewPointWithMeasurement("agent_revenue").
			AddTag("agent_id", string(a.Agent)).
			AddTag("number", strconv.Itoa(a.Number)).
			AddField("revenue", round3(a.Revenue)).
			AddField("tick", snap.Tick).
			SetTime(snap.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordPendingFares writes the size of the fare board.
func (s *InfluxSink) RecordPendingFares(n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fare_board").
		AddField("pending", n).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
