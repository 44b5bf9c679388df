package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/balesniy/reduced.to/internal"
)

// GormStore persists links and click facts in Postgres through GORM. Day
// bucketing uses loc, not the database session timezone, so the calendar
// days it reports match the process's clock.
type GormStore struct {
	db  *gorm.DB
	loc *time.Location
}

// Open connects to Postgres and returns the store. The caller owns migration
// timing via Migrate.
func Open(dsn string, lg gormlogger.Interface) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         lg,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &GormStore{db: db, loc: time.Local}, nil
}

// NewGormStore wraps an already-open GORM handle, mainly for tests.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, loc: time.Local}
}

func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&internal.Link{}, &internal.ClickFact{})
}

func (s *GormStore) FindLinkByKey(ctx context.Context, key string) (*internal.Link, error) {
	var link internal.Link
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding link %q: %w", key, err)
	}
	return &link, nil
}

func (s *GormStore) InsertLink(ctx context.Context, link *internal.Link) error {
	err := s.db.WithContext(ctx).Create(link).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrKeyConflict
	}
	if err != nil {
		return fmt.Errorf("inserting link %q: %w", link.Key, err)
	}
	return nil
}

func (s *GormStore) DeleteExpiredLinks(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(&internal.Link{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting expired links: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) InsertClickFact(ctx context.Context, fact *internal.ClickFact) error {
	if err := s.db.WithContext(ctx).Create(fact).Error; err != nil {
		return fmt.Errorf("inserting click fact for %q: %w", fact.LinkKey, err)
	}
	return nil
}

func (s *GormStore) CountClickFacts(ctx context.Context, f ClickFilter) (int64, error) {
	var count int64
	err := s.filtered(ctx, f).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting click facts: %w", err)
	}
	return count, nil
}

func (s *GormStore) ClicksPerDay(ctx context.Context, f ClickFilter) ([]DayCount, error) {
	sel, zone := dayBucketExpr(s.loc)
	var rows []DayCount
	err := s.filtered(ctx, f).
		Select(sel, zone).
		Group("day").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("bucketing clicks per day: %w", err)
	}
	for i := range rows {
		rows[i].Day = dayInZone(rows[i].Day, s.loc)
	}
	return rows, nil
}

// dayBucketExpr builds the day-truncation select for loc. Timestamps are
// stored as timestamptz, and date_trunc on those follows the database
// session's timezone, so the value is shifted into loc first. Postgres
// resolves IANA names directly; a location without one (time.Local loaded
// from /etc/localtime) falls back to its current UTC offset.
func dayBucketExpr(loc *time.Location) (sel, zone string) {
	if name := loc.String(); name != "" && name != "Local" {
		return `date_trunc('day', "timestamp" AT TIME ZONE ?) AS day, count(*) AS count`, name
	}
	offset := time.Now().In(loc).Format("-07:00")
	return `date_trunc('day', "timestamp" AT TIME ZONE ?::interval) AS day, count(*) AS count`, offset
}

// dayInZone reinterprets a scanned bucket as midnight in loc. date_trunc
// over a shifted timestamp yields a zoneless value whose date part is the
// calendar day in loc; the driver's location label on it is meaningless.
func dayInZone(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (s *GormStore) CountByDimension(ctx context.Context, f ClickFilter, dim, include internal.Dimension) ([]DimensionCount, error) {
	col, ok := dimensionColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unsupported dimension %q", dim)
	}

	sel := fmt.Sprintf("%s AS value, count(*) AS count", col)
	group := col
	if include != "" {
		incCol, ok := dimensionColumns[include]
		if !ok {
			return nil, fmt.Errorf("unsupported include dimension %q", include)
		}
		sel = fmt.Sprintf("%s AS value, %s AS include, count(*) AS count", col, incCol)
		group = col + ", " + incCol
	}

	var rows []DimensionCount
	err := s.filtered(ctx, f).
		Select(sel).
		Group(group).
		Order("count DESC, value").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping clicks by %s: %w", dim, err)
	}
	return rows, nil
}

// dimensionColumns whitelists the groupable columns. Dimension names are
// interpolated into SQL, so everything must pass through this map.
var dimensionColumns = map[internal.Dimension]string{
	internal.DimensionDevice:  "device",
	internal.DimensionOS:      "os",
	internal.DimensionBrowser: "browser",
	internal.DimensionCountry: "country",
	internal.DimensionRegion:  "region",
	internal.DimensionCity:    "city",
}

func (s *GormStore) filtered(ctx context.Context, f ClickFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&internal.ClickFact{})
	if f.LinkKey != "" {
		q = q.Where("link_key = ?", f.LinkKey)
	}
	if !f.From.IsZero() {
		q = q.Where(`"timestamp" >= ?`, f.From)
	}
	if !f.To.IsZero() {
		q = q.Where(`"timestamp" <= ?`, f.To)
	}
	return q
}
