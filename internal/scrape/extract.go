package scrape

import (
	"html"
	"regexp"
	"strings"

	"github.com/okanogan-digital/directory-cli/internal/model"
)

var (
	metaDescRe = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["']([^"']+)["']`)
	ogDescRe   = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:description["'][^>]+content=["']([^"']+)["']`)
	ogImageRe  = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)["']`)
	mailtoRe   = regexp.MustCompile(`(?i)mailto:([a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,})`)
	emailRe    = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.(?:com|net|org|us|biz|info)\b`)
	phoneRe    = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]\d{3}[.\-]\d{4}`)
	hrefRe     = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)
	headingRe  = regexp.MustCompile(`(?is)<h[1-6][^>]*>([^<]{1,80})</h[1-6]>`)
	listRe     = regexp.MustCompile(`(?is)<[uo]l[^>]*>(.*?)</[uo]l>`)
	listItemRe = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
	dayRe      = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thurs|fri|sat|sun|daily|weekdays|weekends)\b`)
	clockRe    = regexp.MustCompile(`(?i)\d{1,2}(:\d{2})?\s*(am|pm)|closed`)
)

// socialHosts maps URL substrings to platform keys.
var socialHosts = []struct {
	marker   string
	platform string
}{
	{"facebook.com/", "facebook"},
	{"instagram.com/", "instagram"},
	{"twitter.com/", "twitter"},
	{"x.com/", "twitter"},
	{"linkedin.com/", "linkedin"},
}

// Extract pulls business fields out of raw HTML. Returns nil when the
// page yields nothing usable.
func Extract(page string) *model.ScrapedRecord {
	rec := &model.ScrapedRecord{}
	found := false

	if desc := firstMatch(metaDescRe, page); desc != "" {
		rec.Description = html.UnescapeString(desc)
		found = true
	} else if desc := firstMatch(ogDescRe, page); desc != "" {
		rec.Description = html.UnescapeString(desc)
		found = true
	}

	if email := firstMatch(mailtoRe, page); email != "" {
		rec.Email = strings.ToLower(email)
		found = true
	} else if email := emailRe.FindString(page); email != "" {
		rec.Email = strings.ToLower(email)
		found = true
	}

	if phone := phoneRe.FindString(page); phone != "" {
		rec.Phone = phone
		found = true
	}

	if img := firstMatch(ogImageRe, page); img != "" {
		rec.ImageURLs = []string{img}
		found = true
	}

	if social := extractSocial(page); len(social) > 0 {
		rec.Social = social
		found = true
	}

	if services := listUnderHeading(page, "service"); len(services) > 0 {
		rec.Services = services
		found = true
	}

	if products := listUnderHeading(page, "product"); len(products) > 0 {
		rec.Products = products
		found = true
	}

	if hours := extractHours(page); hours != "" {
		rec.Hours = hours
		found = true
	}

	if !found {
		return nil
	}
	return rec
}

func firstMatch(re *regexp.Regexp, page string) string {
	m := re.FindStringSubmatch(page)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// listUnderHeading finds the first <ul>/<ol> that opens shortly after a
// heading containing the keyword and returns its cleaned item texts. Lists
// further down the page belong to other sections and are not attributed to
// the heading.
func listUnderHeading(page, keyword string) []string {
	for _, loc := range headingRe.FindAllStringSubmatchIndex(page, -1) {
		heading := strings.ToLower(page[loc[2]:loc[3]])
		if !strings.Contains(heading, keyword) {
			continue
		}
		rest := page[loc[1]:]
		m := listRe.FindStringSubmatchIndex(rest)
		if m == nil || m[0] > 400 {
			continue
		}
		var items []string
		for _, li := range listItemRe.FindAllStringSubmatch(rest[m[2]:m[3]], -1) {
			item := innerText(li[1])
			if item == "" || len(item) > 80 {
				continue
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

// extractHours scans the text after each "hours" mention for lines that pair
// a day name with a clock time and joins them "Day: time" style. The window
// is bounded so an unrelated footer mention doesn't sweep up the whole page.
func extractHours(page string) string {
	lower := strings.ToLower(page)
	for start := 0; ; {
		i := strings.Index(lower[start:], "hours")
		if i < 0 {
			return ""
		}
		at := start + i
		window := page[at:min(at+1200, len(page))]
		text := tagRe.ReplaceAllString(window, "\n")

		var lines []string
		for _, line := range strings.Split(text, "\n") {
			line = strings.Join(strings.Fields(html.UnescapeString(line)), " ")
			if line == "" {
				continue
			}
			if dayRe.MatchString(line) && clockRe.MatchString(line) {
				lines = append(lines, line)
			}
			if len(lines) == 7 {
				break
			}
		}
		if len(lines) > 0 {
			return strings.Join(lines, ", ")
		}
		start = at + len("hours")
	}
}

// innerText strips tags, unescapes entities, and collapses whitespace.
func innerText(fragment string) string {
	return strings.Join(strings.Fields(html.UnescapeString(tagRe.ReplaceAllString(fragment, " "))), " ")
}

func extractSocial(page string) map[string]string {
	var social map[string]string
	for _, m := range hrefRe.FindAllStringSubmatch(page, -1) {
		link := m[1]
		lower := strings.ToLower(link)
		for _, sh := range socialHosts {
			if !strings.Contains(lower, sh.marker) {
				continue
			}
			// Share widgets point at the platform's own sharer pages,
			// not the business profile.
			if strings.Contains(lower, "share") || strings.Contains(lower, "intent") {
				continue
			}
			if social == nil {
				social = make(map[string]string)
			}
			if _, ok := social[sh.platform]; !ok {
				social[sh.platform] = link
			}
		}
	}
	return social
}
