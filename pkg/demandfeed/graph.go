package demandfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/models"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// GraphConfig holds the Neo4j connection settings.
type GraphConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// GraphSource counts orders per day from an order graph of
// (:Order {date})-[:PLACED_AT]->(:Restaurant {id}).
type GraphSource struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

const dailyOrdersQuery = `
MATCH (o:Order)-[:PLACED_AT]->(r:Restaurant {id: $restaurantId})
WHERE o.date >= $from AND o.date <= $to
RETURN o.date AS date, count(o) AS orders
ORDER BY date`

// NewGraphSource connects to Neo4j and verifies connectivity.
func NewGraphSource(ctx context.Context, cfg GraphConfig, logger *zap.Logger) (*GraphSource, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	if logger != nil {
		logger.Info("connected to order graph", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	}
	return &GraphSource{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Close closes the driver.
func (g *GraphSource) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// HistoricalDemand returns the number of orders placed on each day between from and to.
func (g *GraphSource) HistoricalDemand(ctx context.Context, restaurantID uint, from, to time.Time) ([]models.HistoricalSample, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		g.driver,
		dailyOrdersQuery,
		map[string]any{
			"restaurantId": int64(restaurantID),
			"from":         models.FormatDate(from),
			"to":           models.FormatDate(to),
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily orders: %w", err)
	}
	return samplesFromRecords(result.Records)
}

// samplesFromRecords converts (date, orders) rows into samples.
func samplesFromRecords(records []*neo4j.Record) ([]models.HistoricalSample, error) {
	samples := make([]models.HistoricalSample, 0, len(records))
	for _, rec := range records {
		rawDate, ok := rec.Get("date")
		if !ok {
			return nil, fmt.Errorf("order graph row is missing date")
		}
		dateStr, ok := rawDate.(string)
		if !ok {
			return nil, fmt.Errorf("order graph date has type %T, expected string", rawDate)
		}
		d, err := models.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}

		rawCount, _ := rec.Get("orders")
		var count float64
		switch n := rawCount.(type) {
		case int64:
			count = float64(n)
		case float64:
			count = n
		default:
			return nil, fmt.Errorf("order graph count has type %T", rawCount)
		}
		samples = append(samples, models.HistoricalSample{Date: d, Count: count})
	}
	return samples, nil
}
