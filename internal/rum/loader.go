package rum

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aure/rumtrack/internal/api"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAPIEndpoint = "https://bundles.aem.page"
	DefaultCacheSize   = 512

	orgSuffix = ":all"
	// The platform's own aggregate domain ends in :all but is a real domain.
	orgModeExclusion = "aem.live:all"

	hoursInWeek = 7 * 24
	daysBack    = 31
	monthsBack  = 13
)

// ErrInvalidPeriod is returned by FetchPeriod when start is after end.
var ErrInvalidPeriod = errors.New("start date cannot be after end date")

// Getter fetches a raw response body.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Store is a shared tier of response bodies keyed by request URL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
	Flush(ctx context.Context) error
}

// TimeBucket identifies a single remote bundles resource.
type TimeBucket struct {
	DatePath string
	Hour     string
}

type Option func(*Loader)

// WithDomain sets the initial domain. Unlike SetDomain it does not flush
// the shared store.
func WithDomain(domain string) Option {
	return func(l *Loader) { l.domain = domain }
}

func WithDomainKey(key string) Option {
	return func(l *Loader) { l.domainKey = key }
}

func WithGetter(g Getter) Option {
	return func(l *Loader) { l.getter = g }
}

func WithStore(s Store) Option {
	return func(l *Loader) { l.store = s }
}

func WithEnricher(e Enricher) Option {
	return func(l *Loader) { l.enricher = e }
}

// WithConcurrency caps the number of in-flight bucket fetches per aggregate
// call. Zero or less means unlimited.
func WithConcurrency(n int) Option {
	return func(l *Loader) { l.limit = n }
}

func WithCacheSize(n int) Option {
	return func(l *Loader) { l.cacheSize = n }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(l *Loader) { l.log = log }
}

// Loader fetches RUM bundles by UTC hour, day and month.
type Loader struct {
	mu        sync.RWMutex
	endpoint  string
	domain    string
	domainKey string

	getter    Getter
	store     Store
	enricher  Enricher
	memo      *lru.Cache[string, []byte]
	cacheSize int
	limit     int
	now       func() time.Time
	log       *logrus.Entry

	// gen is bumped under mu on every config mutation. Fetches started
	// under an older generation are not remembered.
	gen uint64
}

func NewLoader(endpoint string, opts ...Option) (*Loader, error) {
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}

	l := &Loader{
		endpoint:  endpoint,
		cacheSize: DefaultCacheSize,
		enricher:  CalculatedProps{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.getter == nil {
		l.getter = api.NewClient(api.DefaultTimeout)
	}
	if l.log == nil {
		l.log = logrus.WithField("component", "rum-loader")
	}

	memo, err := lru.New[string, []byte](l.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}
	l.memo = memo

	return l, nil
}

func (l *Loader) APIEndpoint() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.endpoint
}

func (l *Loader) Domain() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.domain
}

func (l *Loader) DomainKey() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.domainKey
}

func (l *Loader) SetAPIEndpoint(endpoint string) {
	l.mu.Lock()
	l.endpoint = endpoint
	l.gen++
	l.mu.Unlock()
	l.flushOnChange()
}

func (l *Loader) SetDomain(domain string) {
	l.mu.Lock()
	l.domain = domain
	l.gen++
	l.mu.Unlock()
	l.flushOnChange()
}

func (l *Loader) SetDomainKey(key string) {
	l.mu.Lock()
	l.domainKey = key
	l.gen++
	l.mu.Unlock()
	l.flushOnChange()
}

func (l *Loader) flushOnChange() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Flush(ctx); err != nil {
		l.log.WithError(err).Warn("flushing shared response cache")
	}
}

// Flush drops every cached response, in memory and in the shared store.
func (l *Loader) Flush(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	l.mu.Unlock()

	l.memo.Purge()
	if l.store == nil {
		return nil
	}
	return l.store.Flush(ctx)
}

// CacheLen reports the number of responses held in memory.
func (l *Loader) CacheLen() int {
	return l.memo.Len()
}

// Org returns the organization id when the loader is in org mode.
func (l *Loader) Org() (string, bool) {
	return orgOf(l.Domain())
}

func orgOf(domain string) (string, bool) {
	if domain == orgModeExclusion || !strings.HasSuffix(domain, orgSuffix) {
		return "", false
	}
	return strings.TrimSuffix(domain, orgSuffix), true
}

// URL builds the request URL of a bucket from the current configuration.
func (l *Loader) URL(b TimeBucket) (string, error) {
	reqURL, _, err := l.bucketURL(b)
	return reqURL, err
}

// bucketURL also returns the config generation the URL was built from.
func (l *Loader) bucketURL(b TimeBucket) (string, uint64, error) {
	l.mu.RLock()
	endpoint, domain, key, gen := l.endpoint, l.domain, l.domainKey, l.gen
	l.mu.RUnlock()

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, fmt.Errorf("parsing api endpoint: %w", err)
	}

	var segments []string
	if org, ok := orgOf(domain); ok {
		segments = []string{"orgs", org, "bundles"}
	} else {
		segments = []string{"bundles", domain}
	}
	segments = append(segments, strings.Split(b.DatePath, "/")...)
	if b.Hour != "" {
		segments = append(segments, b.Hour)
	}

	u = u.JoinPath(segments...)
	q := u.Query()
	q.Set("domainkey", key)
	u.RawQuery = q.Encode()

	return u.String(), gen, nil
}

// load returns the body for reqURL and whether it came from the network.
// Buckets that are still open always go to the network.
func (l *Loader) load(ctx context.Context, reqURL string, closed bool) ([]byte, bool, error) {
	if !closed {
		l.log.WithField("url", redactKey(reqURL)).Debug("fetching open bundles bucket")
		body, err := l.getter.Get(ctx, reqURL)
		return body, false, err
	}

	if body, ok := l.memo.Get(reqURL); ok {
		return body, false, nil
	}

	if l.store != nil {
		body, ok, err := l.store.Get(ctx, reqURL)
		if err != nil {
			l.log.WithError(err).Debug("shared cache lookup failed")
		} else if ok {
			l.memo.Add(reqURL, body)
			return body, false, nil
		}
	}

	l.log.WithField("url", redactKey(reqURL)).Debug("fetching bundles")
	body, err := l.getter.Get(ctx, reqURL)
	return body, err == nil, err
}

func (l *Loader) remember(ctx context.Context, reqURL string, body []byte, gen uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if gen != l.gen {
		return
	}

	l.memo.Add(reqURL, body)
	if l.store == nil {
		return
	}
	if err := l.store.Set(ctx, reqURL, body); err != nil {
		l.log.WithError(err).Debug("shared cache write failed")
	}
}

// fetchBucket loads one bucket. Only buckets that ended before now are
// cached; end is the exclusive upper bound of the bucket.
func (l *Loader) fetchBucket(ctx context.Context, b TimeBucket, end time.Time, r DateRange) ([]Bundle, error) {
	reqURL, gen, err := l.bucketURL(b)
	if err != nil {
		return nil, err
	}

	body, fresh, err := l.load(ctx, reqURL, !end.After(l.now()))
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", b.path(), err)
	}

	bundles, err := decodeBundles(body)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", b.path(), err)
	}
	if fresh {
		l.remember(ctx, reqURL, body, gen)
	}

	for i := range bundles {
		l.enricher.Enrich(&bundles[i])
	}
	return filterByDateRange(bundles, r), nil
}

func (b TimeBucket) path() string {
	if b.Hour == "" {
		return b.DatePath
	}
	return b.DatePath + "/" + b.Hour
}

// FetchUTCMonth loads the calendar month containing ts.
func (l *Loader) FetchUTCMonth(ctx context.Context, ts time.Time, r DateRange) (Result, error) {
	ts = ts.UTC()
	bundles, err := l.fetchBucket(ctx, TimeBucket{DatePath: ts.Format("2006/01")}, startOfMonth(ts).AddDate(0, 1, 0), r)
	if err != nil {
		return Result{}, err
	}
	return Result{Date: ts.Format(time.DateOnly), Bundles: bundles}, nil
}

// FetchUTCDay loads the calendar day containing ts.
func (l *Loader) FetchUTCDay(ctx context.Context, ts time.Time, r DateRange) (Result, error) {
	ts = ts.UTC()
	bundles, err := l.fetchBucket(ctx, TimeBucket{DatePath: ts.Format("2006/01/02")}, startOfDay(ts).AddDate(0, 0, 1), r)
	if err != nil {
		return Result{}, err
	}
	return Result{Date: ts.Format(time.DateOnly), Bundles: bundles}, nil
}

// FetchUTCHour loads the UTC hour containing ts.
func (l *Loader) FetchUTCHour(ctx context.Context, ts time.Time, r DateRange) (Result, error) {
	ts = ts.UTC()
	hour := ts.Format("15")
	bundles, err := l.fetchBucket(ctx, TimeBucket{DatePath: ts.Format("2006/01/02"), Hour: hour}, ts.Truncate(time.Hour).Add(time.Hour), r)
	if err != nil {
		return Result{}, err
	}
	return Result{Date: ts.Format(time.DateOnly), Hour: hour, Bundles: bundles}, nil
}

type fetchFunc func(ctx context.Context, ts time.Time, r DateRange) (Result, error)

// fanOut fetches every timestamp concurrently. Results keep the order of
// stamps and the first error fails the whole batch.
func (l *Loader) fanOut(ctx context.Context, stamps []time.Time, r DateRange, fetch fetchFunc) ([]Result, error) {
	l.log.WithField("buckets", len(stamps)).Info("fetching bundle batch")

	results := make([]Result, len(stamps))
	g, gctx := errgroup.WithContext(ctx)
	if l.limit > 0 {
		g.SetLimit(l.limit)
	}

	for i, ts := range stamps {
		g.Go(func() error {
			res, err := fetch(gctx, ts, r)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *Loader) endOrNow(end *time.Time) time.Time {
	if end != nil {
		return end.UTC()
	}
	return l.now().UTC()
}

// FetchLastWeek loads the 168 hours ending at end, newest first.
func (l *Loader) FetchLastWeek(ctx context.Context, end *time.Time) ([]Result, error) {
	return l.fanOut(ctx, HourlyStamps(l.endOrNow(end), hoursInWeek), DateRange{}, l.FetchUTCHour)
}

// FetchPrevious31Days loads the 31 days ending at end, newest first.
func (l *Loader) FetchPrevious31Days(ctx context.Context, end *time.Time) ([]Result, error) {
	return l.fanOut(ctx, DailyStamps(l.endOrNow(end), daysBack), DateRange{}, l.FetchUTCDay)
}

// FetchPrevious12Months loads 13 calendar months ending with the month of
// end, so that both partial boundary months are covered.
func (l *Loader) FetchPrevious12Months(ctx context.Context, end *time.Time) ([]Result, error) {
	return l.fanOut(ctx, MonthlyStamps(l.endOrNow(end), monthsBack), DateRange{}, l.FetchUTCMonth)
}

// FetchPeriod loads every day (for spans up to 31 days) or every month
// between start and end inclusive, filtered to [start, end].
func (l *Loader) FetchPeriod(ctx context.Context, start time.Time, end *time.Time) ([]Result, error) {
	from := start.UTC()
	to := l.endOrNow(end)
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	r := DateRange{Start: &from, End: &to}
	stamps, g := PeriodStamps(from, to)
	if g == Daily {
		return l.fanOut(ctx, stamps, r, l.FetchUTCDay)
	}
	return l.fanOut(ctx, stamps, r, l.FetchUTCMonth)
}

func redactKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("domainkey") {
		q.Set("domainkey", "redacted")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
