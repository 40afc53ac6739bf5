package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/client/store"
)

// Livestock kinds with distinct KPI sets.
const (
	LivestockDairy   = "dairy"
	LivestockPoultry = "poultry"
)

// Aggregation periods for series.
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// kpiWindowDays is the lookback window for dashboard KPIs.
const kpiWindowDays = 30

// maxSeriesPoints caps production/finance series at the most recent periods.
const maxSeriesPoints = 12

// DairyKPI aggregates the last 30 days of dairy data.
type DairyKPI struct {
	MilkYield  float64 `json:"milkYield"`
	HerdSize   int     `json:"herdSize"`
	ActiveCows int     `json:"activeCows"`
	SickCows   int     `json:"sickCows"`
	DryCows    int     `json:"dryCows"`
	Income     float64 `json:"income"`
	Expenses   float64 `json:"expenses"`
	Profit     float64 `json:"profit"`
}

// PoultryKPI aggregates the last 30 days of poultry data.
type PoultryKPI struct {
	EggProduction  float64 `json:"eggProduction"`
	FlockSize      int     `json:"flockSize"`
	MortalityRate  float64 `json:"mortalityRate"`
	FeedEfficiency float64 `json:"feedEfficiency"`
	Income         float64 `json:"income"`
	Expenses       float64 `json:"expenses"`
	Profit         float64 `json:"profit"`
}

// SeriesPoint is one aggregated production period ("2024-03" or "2024").
type SeriesPoint struct {
	Period string  `json:"period"`
	Total  float64 `json:"total"`
}

// FinancePoint is one aggregated finance period.
type FinancePoint struct {
	Period  string  `json:"period"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Profit  float64 `json:"profit"`
}

// ReportService computes dashboard aggregates from local data only; it never
// touches the network and works fully offline.
type ReportService struct {
	store *store.Store
	now   func() time.Time
}

func NewReportService(st *store.Store) *ReportService {
	return &ReportService{store: st, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ReportService) kpiWindow() (string, string) {
	end := s.now()
	start := end.AddDate(0, 0, -kpiWindowDays)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}

// DairyKPIs computes the dairy dashboard numbers over the last 30 days.
func (s *ReportService) DairyKPIs(ctx context.Context) (*DairyKPI, error) {
	startDate, endDate := s.kpiWindow()
	window := models.Filter{Livestock: LivestockDairy, StartDate: startDate, EndDate: endDate}

	production, err := s.store.GetAll(ctx, models.CollectionProduction, window)
	if err != nil {
		return nil, err
	}
	financial, err := s.store.GetAll(ctx, models.CollectionFinancial, window)
	if err != nil {
		return nil, err
	}
	cows, err := s.store.GetAll(ctx, models.CollectionCows, models.Filter{})
	if err != nil {
		return nil, err
	}

	kpi := &DairyKPI{HerdSize: len(cows)}
	for _, p := range production {
		if p.Type == "milk" {
			kpi.MilkYield += p.Quantity
		}
	}
	for _, c := range cows {
		switch c.Status {
		case "active", "lactating":
			kpi.ActiveCows++
		case "sick":
			kpi.SickCows++
		case "dry":
			kpi.DryCows++
		}
	}
	kpi.Income, kpi.Expenses = sumFinance(financial)
	kpi.Profit = kpi.Income - kpi.Expenses
	return kpi, nil
}

// PoultryKPIs computes the poultry dashboard numbers over the last 30 days.
func (s *ReportService) PoultryKPIs(ctx context.Context) (*PoultryKPI, error) {
	startDate, endDate := s.kpiWindow()
	window := models.Filter{Livestock: LivestockPoultry, StartDate: startDate, EndDate: endDate}

	production, err := s.store.GetAll(ctx, models.CollectionProduction, window)
	if err != nil {
		return nil, err
	}
	financial, err := s.store.GetAll(ctx, models.CollectionFinancial, window)
	if err != nil {
		return nil, err
	}
	health, err := s.store.GetAll(ctx, models.CollectionHealth, window)
	if err != nil {
		return nil, err
	}
	poultry, err := s.store.GetAll(ctx, models.CollectionPoultry, models.Filter{})
	if err != nil {
		return nil, err
	}

	kpi := &PoultryKPI{FlockSize: len(poultry)}
	for _, p := range production {
		if p.Type == "eggs" {
			kpi.EggProduction += p.Quantity
		}
	}

	mortality := 0
	for _, h := range health {
		if h.Type == "mortality" {
			mortality++
		}
	}
	if len(poultry) > 0 {
		kpi.MortalityRate = float64(mortality) / float64(len(poultry))
	}

	var feedCost float64
	for _, f := range financial {
		if f.Category == "feed" {
			feedCost += f.Amount
		}
	}
	if feedCost > 0 {
		kpi.FeedEfficiency = kpi.EggProduction / feedCost
	}

	kpi.Income, kpi.Expenses = sumFinance(financial)
	kpi.Profit = kpi.Income - kpi.Expenses
	return kpi, nil
}

// ProductionSeries groups production quantities by month or year for the
// given livestock kind, returning at most the last 12 periods in ascending
// period order.
func (s *ReportService) ProductionSeries(ctx context.Context, livestock, period string) ([]SeriesPoint, error) {
	production, err := s.store.GetAll(ctx, models.CollectionProduction, models.Filter{Livestock: livestock})
	if err != nil {
		return nil, err
	}

	grouped := map[string]float64{}
	for _, rec := range production {
		key, err := periodKey(rec.Date, period)
		if err != nil {
			continue // malformed date, skip the point
		}
		grouped[key] += rec.Quantity
	}

	points := make([]SeriesPoint, 0, len(grouped))
	for key, total := range grouped {
		points = append(points, SeriesPoint{Period: key, Total: total})
	}
	sortByPeriod(points, func(p SeriesPoint) string { return p.Period })
	return tail(points, maxSeriesPoints), nil
}

// FinanceSeries groups income/expense/profit by month or year.
func (s *ReportService) FinanceSeries(ctx context.Context, livestock, period string) ([]FinancePoint, error) {
	financial, err := s.store.GetAll(ctx, models.CollectionFinancial, models.Filter{Livestock: livestock})
	if err != nil {
		return nil, err
	}

	grouped := map[string]*FinancePoint{}
	for _, rec := range financial {
		key, err := periodKey(rec.Date, period)
		if err != nil {
			continue
		}
		point, ok := grouped[key]
		if !ok {
			point = &FinancePoint{Period: key}
			grouped[key] = point
		}
		if rec.Type == "income" {
			point.Income += rec.Amount
		} else {
			point.Expense += rec.Amount
		}
	}

	points := make([]FinancePoint, 0, len(grouped))
	for _, p := range grouped {
		p.Profit = p.Income - p.Expense
		points = append(points, *p)
	}
	sortByPeriod(points, func(p FinancePoint) string { return p.Period })
	return tail(points, maxSeriesPoints), nil
}

func sumFinance(recs []models.Record) (income, expenses float64) {
	for _, rec := range recs {
		switch rec.Type {
		case "income":
			income += rec.Amount
		case "expense":
			expenses += rec.Amount
		}
	}
	return income, expenses
}

func periodKey(date, period string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	if period == PeriodYearly {
		return t.Format("2006"), nil
	}
	return t.Format("2006-01"), nil
}

func sortByPeriod[T any](points []T, key func(T) string) {
	// Period keys are lexicographically ordered by construction.
	sort.Slice(points, func(i, j int) bool { return key(points[i]) < key(points[j]) })
}

func tail[T any](points []T, n int) []T {
	if len(points) > n {
		return points[len(points)-n:]
	}
	return points
}
