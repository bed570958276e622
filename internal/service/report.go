package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/darkodi/shortlink/internal/model"
)

// ReportStore is the read side used by the dashboard
type ReportStore interface {
	Summary(ctx context.Context) (*model.Summary, error)
	RecentClicks(ctx context.Context, limit int) ([]model.RecentClick, error)
	ClicksPerDay(ctx context.Context, since time.Time) ([]model.Bucket, error)
	ClicksByCountry(ctx context.Context, limit int) ([]model.Bucket, error)
	TopURLs(ctx context.Context, limit int) ([]model.Bucket, error)
	ClicksByUserAgent(ctx context.Context) ([]model.Bucket, error)
}

const (
	recentLimit = 10
	chartLimit  = 10
	chartDays   = 7
)

// Device categories in chart order
var deviceTypes = []string{"Desktop", "Mobile", "Tablet", "Other"}

// ReportService builds dashboard projections over recorded clicks
type ReportService struct {
	store ReportStore
	now   func() time.Time
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// Stats returns headline totals. TopCountry is "Unknown" with no geo data.
func (r *ReportService) Stats(ctx context.Context) (*model.Summary, error) {
	sum, err := r.store.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if sum.TopCountry == "" {
		sum.TopCountry = "Unknown"
	}
	return sum, nil
}

// Recent returns the last clicks, newest first
func (r *ReportService) Recent(ctx context.Context) ([]model.RecentClick, error) {
	clicks, err := r.store.RecentClicks(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return clicks, nil
}

// ClicksOverTime counts clicks per day over the last week
func (r *ReportService) ClicksOverTime(ctx context.Context) (*model.Chart, error) {
	now := r.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -chartDays)
	return r.chart(r.store.ClicksPerDay(ctx, since))
}

// Geographic returns the top countries by clicks
func (r *ReportService) Geographic(ctx context.Context) (*model.Chart, error) {
	return r.chart(r.store.ClicksByCountry(ctx, chartLimit))
}

// TopURLs returns the most clicked codes
func (r *ReportService) TopURLs(ctx context.Context) (*model.Chart, error) {
	return r.chart(r.store.TopURLs(ctx, chartLimit))
}

// DeviceTypes buckets clicks by a coarse user agent classification
func (r *ReportService) DeviceTypes(ctx context.Context) (*model.Chart, error) {
	agents, err := r.store.ClicksByUserAgent(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	counts := make(map[string]int64, len(deviceTypes))
	for _, b := range agents {
		counts[DeviceType(b.Label)] += b.Count
	}

	chart := &model.Chart{Labels: append([]string(nil), deviceTypes...), Clicks: make([]int64, len(deviceTypes))}
	for i, label := range deviceTypes {
		chart.Clicks[i] = counts[label]
	}
	return chart, nil
}

// DeviceType classifies a user agent as Desktop, Mobile, Tablet or Other
func DeviceType(userAgent string) string {
	switch {
	case userAgent == "":
		return "Other"
	case strings.Contains(userAgent, "Mobile"),
		strings.Contains(userAgent, "Android"),
		strings.Contains(userAgent, "iPhone"):
		return "Mobile"
	case strings.Contains(userAgent, "Tablet"), strings.Contains(userAgent, "iPad"):
		return "Tablet"
	default:
		return "Desktop"
	}
}

func (r *ReportService) chart(buckets []model.Bucket, err error) (*model.Chart, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	chart := &model.Chart{Labels: make([]string, 0, len(buckets)), Clicks: make([]int64, 0, len(buckets))}
	for _, b := range buckets {
		chart.Labels = append(chart.Labels, b.Label)
		chart.Clicks = append(chart.Clicks, b.Count)
	}
	return chart, nil
}
