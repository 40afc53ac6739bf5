package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/client/store"

	_ "modernc.org/sqlite"
)

func setupReports(t *testing.T) (*ReportService, *store.Store) {
	t.Helper()

	st, err := store.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := NewReportService(st)
	svc.now = func() time.Time { return time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC) }
	return svc, st
}

func seed(t *testing.T, st *store.Store, c models.Collection, rec models.Record) {
	t.Helper()
	_, err := st.Add(context.Background(), c, &rec)
	require.NoError(t, err)
}

func TestDairyKPIs(t *testing.T) {
	svc, st := setupReports(t)
	ctx := context.Background()

	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-03-10", Type: "milk", Livestock: LivestockDairy, Quantity: 120})
	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-03-20", Type: "milk", Livestock: LivestockDairy, Quantity: 80})
	// outside the 30-day window
	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-01-05", Type: "milk", Livestock: LivestockDairy, Quantity: 500})
	// other livestock
	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-03-15", Type: "eggs", Livestock: LivestockPoultry, Quantity: 40})

	seed(t, st, models.CollectionFinancial, models.Record{Date: "2026-03-12", Type: "income", Livestock: LivestockDairy, Amount: 300})
	seed(t, st, models.CollectionFinancial, models.Record{Date: "2026-03-18", Type: "expense", Livestock: LivestockDairy, Amount: 100})

	seed(t, st, models.CollectionCows, models.Record{Date: "2025-06-01", Status: "active"})
	seed(t, st, models.CollectionCows, models.Record{Date: "2025-06-01", Status: "lactating"})
	seed(t, st, models.CollectionCows, models.Record{Date: "2025-06-01", Status: "sick"})
	seed(t, st, models.CollectionCows, models.Record{Date: "2025-06-01", Status: "dry"})

	kpi, err := svc.DairyKPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(200), kpi.MilkYield)
	assert.Equal(t, 4, kpi.HerdSize)
	assert.Equal(t, 2, kpi.ActiveCows)
	assert.Equal(t, 1, kpi.SickCows)
	assert.Equal(t, 1, kpi.DryCows)
	assert.Equal(t, float64(300), kpi.Income)
	assert.Equal(t, float64(100), kpi.Expenses)
	assert.Equal(t, float64(200), kpi.Profit)
}

func TestPoultryKPIs(t *testing.T) {
	svc, st := setupReports(t)
	ctx := context.Background()

	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-03-10", Type: "eggs", Livestock: LivestockPoultry, Quantity: 200})
	seed(t, st, models.CollectionFinancial, models.Record{Date: "2026-03-11", Type: "expense", Category: "feed", Livestock: LivestockPoultry, Amount: 50})
	seed(t, st, models.CollectionHealth, models.Record{Date: "2026-03-12", Type: "mortality", Livestock: LivestockPoultry})

	for i := 0; i < 10; i++ {
		seed(t, st, models.CollectionPoultry, models.Record{Date: "2025-09-01", Breed: "leghorn"})
	}

	kpi, err := svc.PoultryKPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(200), kpi.EggProduction)
	assert.Equal(t, 10, kpi.FlockSize)
	assert.InDelta(t, 0.1, kpi.MortalityRate, 1e-9)
	assert.InDelta(t, 4.0, kpi.FeedEfficiency, 1e-9) // 200 eggs / 50 feed cost
	assert.Equal(t, float64(-50), kpi.Profit)
}

func TestProductionSeriesMonthly(t *testing.T) {
	svc, st := setupReports(t)

	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-01-10", Type: "milk", Livestock: LivestockDairy, Quantity: 100})
	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-01-20", Type: "milk", Livestock: LivestockDairy, Quantity: 50})
	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-02-05", Type: "milk", Livestock: LivestockDairy, Quantity: 70})

	points, err := svc.ProductionSeries(context.Background(), LivestockDairy, PeriodMonthly)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, SeriesPoint{Period: "2026-01", Total: 150}, points[0])
	assert.Equal(t, SeriesPoint{Period: "2026-02", Total: 70}, points[1])
}

func TestProductionSeriesCapsAtTwelvePeriods(t *testing.T) {
	svc, st := setupReports(t)

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		d := start.AddDate(0, i, 0)
		seed(t, st, models.CollectionProduction, models.Record{
			Date: d.Format("2006-01-02"), Type: "milk", Livestock: LivestockDairy, Quantity: 10,
		})
	}

	points, err := svc.ProductionSeries(context.Background(), LivestockDairy, PeriodMonthly)
	require.NoError(t, err)
	require.Len(t, points, 12)
	assert.Equal(t, "2025-04", points[0].Period, "oldest periods are dropped first")
	assert.Equal(t, "2026-03", points[11].Period)
}

func TestFinanceSeriesYearly(t *testing.T) {
	svc, st := setupReports(t)

	seed(t, st, models.CollectionFinancial, models.Record{Date: "2025-05-01", Type: "income", Livestock: LivestockDairy, Amount: 1000})
	seed(t, st, models.CollectionFinancial, models.Record{Date: "2025-08-01", Type: "expense", Livestock: LivestockDairy, Amount: 400})
	seed(t, st, models.CollectionFinancial, models.Record{Date: "2026-02-01", Type: "income", Livestock: LivestockDairy, Amount: 250})

	points, err := svc.FinanceSeries(context.Background(), LivestockDairy, PeriodYearly)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, FinancePoint{Period: "2025", Income: 1000, Expense: 400, Profit: 600}, points[0])
	assert.Equal(t, FinancePoint{Period: "2026", Income: 250, Expense: 0, Profit: 250}, points[1])
}

func TestSeriesSkipsMalformedDates(t *testing.T) {
	svc, st := setupReports(t)

	seed(t, st, models.CollectionProduction, models.Record{Date: "2026-03-10", Type: "milk", Livestock: LivestockDairy, Quantity: 100})
	seed(t, st, models.CollectionProduction, models.Record{Date: "not-a-date", Type: "milk", Livestock: LivestockDairy, Quantity: 999})

	points, err := svc.ProductionSeries(context.Background(), LivestockDairy, PeriodMonthly)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, float64(100), points[0].Total)
}
