package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/model"
	"github.com/DanielBergThomsen/tentahjalpen/pkg/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
)

// codePattern matches a course code embedded in a page title: three uppercase
// letters followed by three digits.
var codePattern = regexp.MustCompile(`[A-Z]{3}[0-9]{3}`)

// Enqueuer hands discovered PDF links to the download stage as typed jobs.
type Enqueuer interface {
	EnqueueDownloadJob(ctx context.Context, job model.DownloadJob) error
}

// Crawler walks the external exam site: the listing page yields per-course detail
// pages, each detail page yields zero or more candidate PDFs. Candidates are only
// enqueued when a matching occasion exists in the store and the attachment kind is
// still absent. Nothing is written to the results table directly.
type Crawler struct {
	cfg        config.CrawlerConfig
	repo       db.Repository
	queue      Enqueuer
	httpClient *http.Client
	log        zerolog.Logger
}

func NewCrawler(cfg config.CrawlerConfig, repo db.Repository, queue Enqueuer) *Crawler {
	timeout := cfg.FetchTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Crawler{
		cfg:  cfg,
		repo: repo,
		queue: queue,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.With("crawler"),
	}
}

// Run crawls the listing page and processes every discovered course page. Page
// failures are logged and do not abort the rest of the crawl.
func (c *Crawler) Run(ctx context.Context) error {
	listingURL := c.cfg.BaseURL + c.cfg.ListingPath

	links, err := c.discoverCoursePages(ctx, listingURL)
	if err != nil {
		return fmt.Errorf("failed to crawl listing page: %w", err)
	}

	c.log.Info().Int("pages", len(links)).Msg("Discovered course pages")

	concurrency := c.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(pageURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := c.processCoursePage(ctx, pageURL); err != nil {
				c.log.Warn().Err(err).Str("url", pageURL).Msg("Skipping course page")
			}
		}(link)
	}

	wg.Wait()
	return ctx.Err()
}

// discoverCoursePages extracts all detail-page links from the listing page. Course
// pages are recognized by the kurs query parameter.
func (c *Crawler) discoverCoursePages(ctx context.Context, listingURL string) ([]string, error) {
	doc, err := c.fetchDocument(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "kurs=") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})

	return links, nil
}

func (c *Crawler) processCoursePage(ctx context.Context, pageURL string) error {
	log := c.log.With().Str("url", pageURL).Logger()

	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return err
	}

	rows := doc.Find("table table tr")
	if rows.Length() <= 2 {
		log.Debug().Msg("No entries")
		return nil
	}

	code, err := c.resolveCourse(ctx, pageURL)
	if err != nil {
		return err
	}

	// the first two rows are the course title and the column headers
	var pageErr error
	rows.Slice(2, rows.Length()).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if err := c.processOccasionRow(ctx, code, row, log); err != nil {
			pageErr = err
			return false
		}
		return true
	})

	return pageErr
}

// resolveCourse derives the course code for a detail page. The URL-embedded title is
// tried first for the fixed code pattern; failing that, the title must match exactly
// one course name in the store.
func (c *Crawler) resolveCourse(ctx context.Context, pageURL string) (string, error) {
	title := pageTitle(pageURL)

	if code := codePattern.FindString(title); code != "" {
		exists, err := c.repo.CourseExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", errors.ErrCourseNotFound
		}
		return code, nil
	}

	// no code present, match against course names as a last-ditch effort
	codes, err := c.repo.FindCodesByName(ctx, title)
	if err != nil {
		return "", err
	}
	if len(codes) != 1 {
		return "", errors.ErrAmbiguousCourse
	}

	return codes[0], nil
}

func (c *Crawler) processOccasionRow(ctx context.Context, code string, row *goquery.Selection, log zerolog.Logger) error {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return nil
	}

	taken, err := parseOccasionDate(cells.First().Text())
	if err != nil {
		log.Debug().Str("date", cells.First().Text()).Msg("Invalid date format, skipping row")
		return nil
	}

	result, err := c.repo.GetResult(ctx, code, taken)
	if err == errors.ErrResultNotFound {
		log.Debug().Str("taken", taken).Msg("Date not found in database")
		return nil
	}
	if err != nil {
		return err
	}

	if result.HasAttachment(model.KindExam) {
		log.Debug().Str("taken", taken).Msg("Exam already present in database")
		return nil
	}

	examHref, ok := cells.Eq(2).Find("a").Attr("href")
	if !ok {
		return nil
	}

	if err := c.enqueue(ctx, code, taken, model.KindExam, examHref); err != nil {
		return err
	}

	solutionHref, ok := cells.Eq(3).Find("a").Attr("href")
	if !ok {
		log.Debug().Str("taken", taken).Msg("Solution not present, skipping")
		return nil
	}

	if result.HasAttachment(model.KindSolution) {
		log.Debug().Str("taken", taken).Msg("Solution already present in database")
		return nil
	}

	return c.enqueue(ctx, code, taken, model.KindSolution, solutionHref)
}

func (c *Crawler) enqueue(ctx context.Context, code, taken string, kind model.AttachmentKind, href string) error {
	job := model.DownloadJob{
		Code:  code,
		Taken: taken,
		Kind:  kind,
		URL:   c.cfg.BaseURL + href,
	}

	c.log.Info().Str("code", code).Str("taken", taken).Str("kind", string(kind)).
		Msg("Enqueueing PDF download")
	return c.queue.EnqueueDownloadJob(ctx, job)
}

func (c *Crawler) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// pageTitle recovers the human-readable course title from a detail-page URL, where
// spaces are encoded as underscores in the kurs parameter.
func pageTitle(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	return strings.ReplaceAll(parsed.Query().Get("kurs"), "_", " ")
}

func parseOccasionDate(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty date")
	}

	t, err := dateparse.ParseAny(text)
	if err != nil {
		return "", err
	}

	return t.Format("2006-01-02"), nil
}
