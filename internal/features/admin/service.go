// Package admin: service.go builds the dashboard numbers.
package admin

import (
	"context"
	"strings"
	"time"

	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/features/orders"
)

// chartDays is the length of the revenue chart, the selected day included.
const chartDays = 7

const dateLayout = "2006-01-02"

type RevenueSource interface {
	RevenueByDay(ctx context.Context, from, to time.Time, loc *time.Location) ([]DayRevenue, error)
}

type OrderLister interface {
	Recent(ctx context.Context, limit int) ([]orders.Order, error)
}

type Service struct {
	revenue RevenueSource
	orders  OrderLister
	loc     *time.Location
	now     func() time.Time
}

func NewService(revenue RevenueSource, ol OrderLister, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{revenue: revenue, orders: ol, loc: loc, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ParseDate reads a YYYY-MM-DD day in the service time zone. Empty means
// today.
func (s *Service) ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return common.StartOfDay(s.now(), s.loc), nil
	}
	d, err := time.ParseInLocation(dateLayout, v, s.loc)
	if err != nil {
		return time.Time{}, common.ErrInvalidDate
	}
	return d, nil
}

// Stats returns the revenue and order count of day and a chart of the seven
// days ending with it, oldest first.
func (s *Service) Stats(ctx context.Context, day time.Time) (Stats, error) {
	day = common.StartOfDay(day, s.loc)
	from := day.AddDate(0, 0, -(chartDays - 1))
	to := day.AddDate(0, 0, 1)

	rows, err := s.revenue.RevenueByDay(ctx, from, to, s.loc)
	if err != nil {
		return Stats{}, err
	}

	byDay := make(map[string]DayRevenue, len(rows))
	for _, r := range rows {
		key := r.Day.Format(dateLayout)
		acc := byDay[key]
		acc.Total = acc.Total.Add(r.Total)
		acc.Count += r.Count
		byDay[key] = acc
	}

	st := Stats{Date: day.Format(dateLayout), ChartData: make([]ChartPoint, 0, chartDays)}
	for i := 0; i < chartDays; i++ {
		d := from.AddDate(0, 0, i)
		total := byDay[d.Format(dateLayout)].Total
		st.ChartData = append(st.ChartData, ChartPoint{
			Name:  common.WeekdayLabel(d),
			Value: common.RoundMoney(total).InexactFloat64(),
		})
	}

	today := byDay[day.Format(dateLayout)]
	st.DayRevenue = common.RoundMoney(today.Total).InexactFloat64()
	st.DayCount = today.Count
	return st, nil
}

func (s *Service) RecentOrders(ctx context.Context, limit int) ([]orders.Order, error) {
	return s.orders.Recent(ctx, limit)
}
