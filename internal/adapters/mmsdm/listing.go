package mmsdm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"nemseer/internal/core/forecast"
	"nemseer/internal/core/resolve"
	perr "nemseer/internal/platform/errors"
	pstrings "nemseer/internal/platform/strings"
)

// Page is a scraped directory listing
type Page struct {
	URL   string
	Links []string
	// Text is every text node concatenated, the way the listing reads in a browser
	Text string
}

// Listing fetches and parses a directory listing. Anything but a 404 or a
// cancelled context is retried after the retry delay
func (c *Client) Listing(ctx context.Context, url string, extra http.Header) (*Page, error) {
	for attempt := 1; ; attempt++ {
		page, err := c.fetchPage(ctx, url, extra)
		if err == nil {
			return page, nil
		}
		if perr.IsCode(err, perr.ErrorCodeNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			return nil, perr.WithOp(perr.Wrapf(err, perr.CodeOf(err), "listing %s failed after %d attempts", url, attempt), "mmsdm.Listing")
		}
		c.log.Debug().Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Bool("transient", perr.IsRetryable(err)).
			Msg("listing not ok, retrying")
		if serr := c.sleep(ctx, c.retryDelay); serr != nil {
			return nil, serr
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, url string, extra http.Header) (*Page, error) {
	body, err := c.get(ctx, url, extra)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	return parsePage(url, body)
}

func parsePage(url string, r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "parse listing %s", url)
	}
	p := &Page{URL: url}
	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "a" {
				for _, a := range n.Attr {
					if a.Key == "href" {
						p.Links = append(p.Links, a.Val)
					}
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	p.Text = text.String()
	return p, nil
}

// capture returns the unique first groups of re over the page links
func (p *Page) capture(re *regexp.Regexp) []string {
	var out []string
	for _, l := range p.Links {
		if m := re.FindStringSubmatch(l); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

// Tables lists the logical tables published for a forecast type in a month.
// Enumeration digits are folded away (CONSTRAINTSOLUTION1 is CONSTRAINTSOLUTION)
func (c *Client) Tables(ctx context.Context, year int, month time.Month, t forecast.Type) ([]string, error) {
	if !t.Valid() {
		return nil, perr.WithField(perr.Validationf("forecast type should be one of %s", forecast.Names()), "forecast_type")
	}
	re := regexp.MustCompile(`^(?:.*/)?PUBLIC_DVD_` + regexp.QuoteMeta(string(t)) + `([A-Z_]*)[0-9]?_[0-9]*\.zip$`)
	folders := []string{resolve.FolderData}
	if t == forecast.PREDISPATCH {
		folders = append(folders, resolve.FolderAllData)
	}
	var tables []string
	for i, folder := range folders {
		page, err := c.Listing(ctx, c.FolderURL(year, month, folder), nil)
		if err != nil {
			// older months have no PREDISP_ALL_DATA folder
			if i > 0 && perr.IsCode(err, perr.ErrorCodeNotFound) {
				continue
			}
			return nil, err
		}
		for _, tbl := range page.capture(re) {
			tables = append(tables, strings.TrimLeft(tbl, "_"))
		}
	}
	return pstrings.SortedUnique(tables), nil
}

var (
	yearRe  = regexp.MustCompile(`^.*([0-9]{4}).*$`)
	monthRe = regexp.MustCompile(`^.*[0-9]{4}_([0-9]{2})`)
)

// DateRange maps each archive year to the months that have data
func (c *Client) DateRange(ctx context.Context) (map[int][]int, error) {
	root, err := c.Listing(ctx, c.base, nil)
	if err != nil {
		return nil, err
	}
	out := map[int][]int{}
	referer := http.Header{"Referer": []string{c.base}}
	for _, y := range root.capture(yearRe) {
		year, err := strconv.Atoi(y)
		if err != nil {
			continue
		}
		if _, done := out[year]; done {
			continue
		}
		page, err := c.Listing(ctx, c.base+strconv.Itoa(year)+"/", referer)
		if err != nil {
			return nil, err
		}
		var months []int
		for _, m := range page.capture(monthRe) {
			if n, err := strconv.Atoi(m); err == nil && n >= 1 && n <= 12 && !slices.Contains(months, n) {
				months = append(months, n)
			}
		}
		sort.Ints(months)
		out[year] = months
	}
	return out, nil
}

// FileSize returns the size in MB (2 dp) the listing shows beside a table's file
func (c *Client) FileSize(ctx context.Context, year int, month time.Month, t forecast.Type, table string) (float64, error) {
	if !t.Valid() {
		return 0, perr.WithField(perr.Validationf("forecast type should be one of %s", forecast.Names()), "forecast_type")
	}
	folder := resolve.Folder(t, table)
	file := resolve.Stub(year, month, t, table) + ".zip"
	page, err := c.Listing(ctx, c.FolderURL(year, month, folder), nil)
	if err != nil {
		return 0, err
	}
	m := regexp.MustCompile(`([0-9]+) ` + regexp.QuoteMeta(file)).FindStringSubmatch(page.Text)
	if m == nil {
		return 0, perr.NotFoundf("Cannot find file size for %s", file)
	}
	b, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeIntegrity, "file size %q for %s", m[1], file)
	}
	return roundMB(b), nil
}

func roundMB(bytes float64) float64 {
	mb := bytes / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
