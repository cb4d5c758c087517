package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/planweave/core/internal/domain/entities"
	"github.com/planweave/core/internal/infrastructure/config"
	"github.com/planweave/core/internal/infrastructure/logger"
)

const icsDateLayout = "20060102"

// ICSProvider serves external events from an ICS feed (URL or local file).
// Recurring VEVENTs are expanded with their RRULE into the requested day.
// It polls the feed and emits a change signal whenever the payload differs
// from the previous poll.
type ICSProvider struct {
	url          string
	calendar     string
	fetchTimeout time.Duration
	pollInterval time.Duration
	client       *http.Client
	logger       *logger.Logger

	changes  chan struct{}
	lastBody string
}

// NewICSProvider creates a provider for the configured feed.
func NewICSProvider(cfg config.ProviderConfig, log *logger.Logger) *ICSProvider {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ICSProvider{
		url:          cfg.ICSURL,
		calendar:     cfg.Calendar,
		fetchTimeout: timeout,
		pollInterval: cfg.PollInterval,
		client:       &http.Client{Timeout: timeout},
		logger:       log.WithComponent("ics_provider"),
		changes:      make(chan struct{}, 1),
	}
}

// FetchEvents returns the feed's events intersecting the calendar day
// containing day.
func (p *ICSProvider) FetchEvents(ctx context.Context, day time.Time) ([]entities.ExternalEvent, error) {
	body, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	cal, err := ics.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ics feed: %w", err)
	}

	dayStart := entities.DayStart(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events := []entities.ExternalEvent{}
	for _, ve := range cal.Events() {
		expanded, err := expandEvent(ve, dayStart, dayEnd)
		if err != nil {
			uid := ""
			if prop := ve.GetProperty(ics.ComponentPropertyUniqueId); prop != nil {
				uid = prop.Value
			}
			p.logger.Warnw("skipping unparsable event", "uid", uid, "error", err)
			continue
		}
		events = append(events, expanded...)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
	return events, nil
}

// Changes emits whenever a poll observes a different feed payload.
func (p *ICSProvider) Changes() <-chan struct{} {
	return p.changes
}

// Poll watches the feed until ctx ends. Each changed payload produces one
// change signal; an unchanged or failed poll produces none.
func (p *ICSProvider) Poll(ctx context.Context) {
	if p.pollInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				body, err := p.load(ctx)
				if err != nil {
					p.logger.Warnw("feed poll failed", "error", err)
					continue
				}
				if body == p.lastBody {
					continue
				}
				p.lastBody = body
				select {
				case p.changes <- struct{}{}:
				default:
				}
			}
		}
	}()
}

func (p *ICSProvider) load(ctx context.Context) (string, error) {
	if p.url == "" {
		return "", fmt.Errorf("no ics feed configured")
	}

	if !strings.HasPrefix(p.url, "http://") && !strings.HasPrefix(p.url, "https://") {
		data, err := os.ReadFile(p.url)
		if err != nil {
			return "", fmt.Errorf("failed to read ics file: %w", err)
		}
		return string(data), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build feed request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch ics feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ics feed returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read ics feed: %w", err)
	}
	return string(data), nil
}

// expandEvent turns one VEVENT into the concrete instances that intersect
// [dayStart, dayEnd), expanding the RRULE when present and preserving the
// base event's duration for each instance.
func expandEvent(ve *ics.VEvent, dayStart, dayEnd time.Time) ([]entities.ExternalEvent, error) {
	uid := ""
	if prop := ve.GetProperty(ics.ComponentPropertyUniqueId); prop != nil {
		uid = prop.Value
	}
	summary := ""
	if prop := ve.GetProperty(ics.ComponentPropertySummary); prop != nil {
		summary = prop.Value
	}

	start, allDay, err := eventStart(ve)
	if err != nil {
		return nil, err
	}
	end, err := eventEnd(ve, start, allDay)
	if err != nil {
		return nil, err
	}
	duration := end.Sub(start)

	rruleProp := ve.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		if !start.Before(dayEnd) || !end.After(dayStart) {
			return nil, nil
		}
		return []entities.ExternalEvent{{
			ExternalID: instanceID(uid, start),
			Title:      summary,
			StartDate:  start,
			EndDate:    end,
			IsAllDay:   allDay,
		}}, nil
	}

	opt, err := rrule.StrToROption(rruleProp.Value)
	if err != nil {
		return nil, fmt.Errorf("bad rrule %q: %w", rruleProp.Value, err)
	}
	opt.Dtstart = start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("bad rrule %q: %w", rruleProp.Value, err)
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for _, prop := range ve.GetProperties(ics.ComponentPropertyExdate) {
		for _, part := range strings.Split(prop.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if ex, err := parseICSTime(part, start.Location()); err == nil {
				set.ExDate(ex)
			}
		}
	}

	// Widen the window so instances that began earlier but spill into the
	// day are still found.
	windowStart := dayStart.Add(-duration)

	events := []entities.ExternalEvent{}
	for _, instStart := range set.Between(windowStart, dayEnd, true) {
		instEnd := instStart.Add(duration)
		if !instStart.Before(dayEnd) || !instEnd.After(dayStart) {
			continue
		}
		events = append(events, entities.ExternalEvent{
			ExternalID: instanceID(uid, instStart),
			Title:      summary,
			StartDate:  instStart,
			EndDate:    instEnd,
			IsAllDay:   allDay,
		})
	}
	return events, nil
}

func eventStart(ve *ics.VEvent) (time.Time, bool, error) {
	prop := ve.GetProperty(ics.ComponentPropertyDtStart)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("event has no DTSTART")
	}
	// VALUE=DATE and bare YYYYMMDD forms are all-day.
	if !strings.Contains(prop.Value, "T") {
		t, err := time.ParseInLocation(icsDateLayout, prop.Value, time.Local)
		return t, true, err
	}
	t, err := ve.GetStartAt()
	return t, false, err
}

func eventEnd(ve *ics.VEvent, start time.Time, allDay bool) (time.Time, error) {
	prop := ve.GetProperty(ics.ComponentPropertyDtEnd)
	if prop == nil {
		if allDay {
			return start.AddDate(0, 0, 1), nil
		}
		return start.Add(time.Hour), nil
	}
	if !strings.Contains(prop.Value, "T") {
		return time.ParseInLocation(icsDateLayout, prop.Value, time.Local)
	}
	return ve.GetEndAt()
}

func parseICSTime(value string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(value, "Z") {
		return time.ParseInLocation("20060102T150405Z", value, time.UTC)
	}
	for _, layout := range []string{"20060102T150405", icsDateLayout} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized ics time %q", value)
}

// instanceID keys one concrete instance of an event: the feed UID plus the
// instance start, so each expanded occurrence of a recurring event stays
// individually cacheable and purgeable.
func instanceID(uid string, start time.Time) string {
	if uid == "" {
		return ""
	}
	return uid + "/" + start.UTC().Format(time.RFC3339)
}
