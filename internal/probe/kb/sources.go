package kb

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sony/gobreaker/v2"
)

const probeUserAgent = "gateway-kb-probe/1.0"

// Document is one fetched document ready for upload.
type Document struct {
	Title       string
	Content     []byte
	Filename    string
	ContentType string
	Source      string
	SourceURL   string
}

// FetchResult collects the documents and non-fatal errors of one source run.
type FetchResult struct {
	SourceName string
	Documents  []Document
	Errors     []string
}

// Source fetches sample documents for one knowledge base and knows which
// semantic queries should hit them.
type Source interface {
	Name() string
	Description() string
	Queries() []string
	Fetch(ctx context.Context, f *fetcher, maxDocs int) FetchResult
}

// Sources returns every document source in display order.
func Sources() []Source {
	return []Source{
		newRFCSource(),
		newBlogSource(),
		newArxivSource(),
		syntheticSource{},
	}
}

// SourceByName returns the named source or nil.
func SourceByName(name string) Source {
	for _, src := range Sources() {
		if src.Name() == name {
			return src
		}
	}
	return nil
}

type fetchedResponse struct {
	Body        []byte
	ContentType string
}

// fetcher performs breaker-guarded GETs with a response size cap so one
// flaky source cannot stall or flood a probe run.
type fetcher struct {
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*fetchedResponse]
	maxBytes int64
}

func newFetcher(name string, client *http.Client, maxBytes int64) *fetcher {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("Source breaker state changed",
				"source", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &fetcher{
		client:   client,
		breaker:  gobreaker.NewCircuitBreaker[*fetchedResponse](settings),
		maxBytes: maxBytes,
	}
}

func (f *fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := f.breaker.Execute(func() (*fetchedResponse, error) {
		return f.fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.ContentType, nil
}

func (f *fetcher) fetch(ctx context.Context, rawURL string) (*fetchedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%s exceeds the %d byte size cap", rawURL, f.maxBytes)
	}

	return &fetchedResponse{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// rfcSource fetches well-known IETF RFCs, trying mirrors in order.
type rfcSource struct {
	urlTemplates []string
}

func newRFCSource() *rfcSource {
	return &rfcSource{
		urlTemplates: []string{
			"https://www.ietf.org/rfc/rfc%s.txt",
			"https://datatracker.ietf.org/doc/html/rfc%s",
		},
	}
}

var wellKnownRFCs = []struct {
	num   string
	title string
}{
	{"8259", "JSON"},
	{"7231", "HTTP/1.1 Semantics"},
	{"7230", "HTTP/1.1 Message Syntax"},
	{"6749", "OAuth 2.0"},
	{"7519", "JSON Web Token (JWT)"},
	{"7540", "HTTP/2"},
	{"8446", "TLS 1.3"},
	{"9110", "HTTP Semantics"},
	{"9111", "HTTP Caching"},
	{"9112", "HTTP/1.1"},
}

func (s *rfcSource) Name() string        { return "rfc" }
func (s *rfcSource) Description() string { return "IETF RFC (Request for Comments) documents" }

func (s *rfcSource) Queries() []string {
	return []string{"HTTP caching headers", "TLS handshake", "JSON format specification"}
}

func (s *rfcSource) Fetch(ctx context.Context, f *fetcher, maxDocs int) FetchResult {
	result := FetchResult{SourceName: s.Name()}

	for _, rfc := range wellKnownRFCs {
		if len(result.Documents) >= maxDocs {
			break
		}

		fetched := false
		for _, template := range s.urlTemplates {
			rawURL := fmt.Sprintf(template, rfc.num)
			body, contentType, err := f.get(ctx, rawURL)
			if err != nil {
				continue
			}

			content := body
			if strings.Contains(strings.ToLower(contentType), "html") {
				content = []byte(stripHTML(string(body)))
			}

			result.Documents = append(result.Documents, Document{
				Title:       fmt.Sprintf("RFC %s: %s", rfc.num, rfc.title),
				Content:     content,
				Filename:    fmt.Sprintf("rfc%s.txt", rfc.num),
				ContentType: "text/plain",
				Source:      s.Name(),
				SourceURL:   rawURL,
			})
			fetched = true
			break
		}

		if !fetched {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to fetch RFC %s from all mirrors", rfc.num))
		}
	}

	return result
}

// blogSource pulls recent articles from an Atom feed.
type blogSource struct {
	feedURL string
}

func newBlogSource() *blogSource {
	return &blogSource{feedURL: "https://go.dev/blog/feed.atom"}
}

func (s *blogSource) Name() string        { return "blog" }
func (s *blogSource) Description() string { return "Engineering blog articles (Atom feed)" }

func (s *blogSource) Queries() []string {
	return []string{"generics and type parameters", "error handling patterns", "garbage collector latency"}
}

func (s *blogSource) Fetch(ctx context.Context, f *fetcher, maxDocs int) FetchResult {
	result := FetchResult{SourceName: s.Name()}

	body, _, err := f.get(ctx, s.feedURL)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to fetch feed: %v", err))
		return result
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to parse feed: %v", err))
		return result
	}

	for _, entry := range feed.Entries {
		if len(result.Documents) >= maxDocs {
			break
		}

		text := stripHTML(entry.Content)
		if text == "" {
			text = stripHTML(entry.Summary)
		}
		// Skip stubs, they carry no searchable content.
		if len(text) < 100 {
			continue
		}

		title := collapseSpace(entry.Title)
		result.Documents = append(result.Documents, Document{
			Title:       title,
			Content:     []byte(text),
			Filename:    slugify(title) + ".txt",
			ContentType: "text/plain",
			Source:      s.Name(),
			SourceURL:   entry.alternateLink(),
		})
	}

	return result
}

// arxivSource queries the arXiv API for recent CS papers and indexes their
// abstracts. Abstracts only: PDFs blow the size cap and embed poorly.
type arxivSource struct {
	apiURL string
}

func newArxivSource() *arxivSource {
	return &arxivSource{apiURL: "https://export.arxiv.org/api/query"}
}

func (s *arxivSource) Name() string        { return "arxiv" }
func (s *arxivSource) Description() string { return "arXiv preprint abstracts (computer science)" }

func (s *arxivSource) Queries() []string {
	return []string{"transformer architecture", "language model training", "neural network optimization"}
}

func (s *arxivSource) Fetch(ctx context.Context, f *fetcher, maxDocs int) FetchResult {
	result := FetchResult{SourceName: s.Name()}

	query := url.Values{
		"search_query": {"cat:cs.AI OR cat:cs.LG OR cat:cs.CL"},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
		"max_results":  {strconv.Itoa(maxDocs)},
	}

	body, _, err := f.get(ctx, s.apiURL+"?"+query.Encode())
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to query arXiv API: %v", err))
		return result
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to parse arXiv response: %v", err))
		return result
	}

	for _, entry := range feed.Entries {
		if len(result.Documents) >= maxDocs {
			break
		}

		_, arxivID, found := strings.Cut(entry.ID, "/abs/")
		if !found {
			result.Errors = append(result.Errors, "entry without an arXiv id")
			continue
		}

		title := collapseSpace(entry.Title)
		abstract := collapseSpace(entry.Summary)

		var authors []string
		for _, author := range entry.Authors {
			authors = append(authors, author.Name)
		}
		if len(authors) > 5 {
			authors = authors[:5]
		}

		var categories []string
		for _, category := range entry.Categories {
			if category.Term != "" {
				categories = append(categories, category.Term)
			}
		}
		if len(categories) > 3 {
			categories = categories[:3]
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s\n\n", title)
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(authors, ", "))
		fmt.Fprintf(&b, "Categories: %s\n\n", strings.Join(categories, ", "))
		fmt.Fprintf(&b, "%s\n", abstract)

		result.Documents = append(result.Documents, Document{
			Title:       title,
			Content:     []byte(b.String()),
			Filename:    "arxiv_" + strings.ReplaceAll(arxivID, "/", "_") + ".txt",
			ContentType: "text/plain",
			Source:      s.Name(),
			SourceURL:   "https://arxiv.org/abs/" + arxivID,
		})
	}

	return result
}

// syntheticSource generates a small product handbook offline, so the probe
// stays usable without outbound network access.
type syntheticSource struct{}

func (syntheticSource) Name() string        { return "synthetic" }
func (syntheticSource) Description() string { return "Generated product handbook (offline)" }

func (syntheticSource) Queries() []string {
	return []string{"refund policy", "shipping options", "support contact"}
}

func (s syntheticSource) Fetch(_ context.Context, _ *fetcher, maxDocs int) FetchResult {
	result := FetchResult{SourceName: s.Name()}

	faker := gofakeit.New(11)
	company := faker.Company()

	topics := []struct {
		slug    string
		heading string
	}{
		{"refund-policy", "Refund policy"},
		{"shipping-options", "Shipping options"},
		{"support-contact", "Support contact"},
	}

	for i, topic := range topics {
		if i >= maxDocs {
			break
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s\n\n", company, topic.heading)
		fmt.Fprintf(&b, "%s\n\n", faker.Paragraph(2, 4, 12, "\n\n"))
		fmt.Fprintf(&b, "Contact %s at %s or %s.\n", faker.Name(), faker.Email(), faker.PhoneFormatted())

		result.Documents = append(result.Documents, Document{
			Title:       fmt.Sprintf("%s %s", company, topic.heading),
			Content:     []byte(b.String()),
			Filename:    topic.slug + ".txt",
			ContentType: "text/plain",
			Source:      s.Name(),
		})
	}

	return result
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title      string         `xml:"title"`
	ID         string         `xml:"id"`
	Summary    string         `xml:"summary"`
	Content    string         `xml:"content"`
	Links      []atomLink     `xml:"link"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

func (e atomEntry) alternateLink() string {
	for _, link := range e.Links {
		if link.Rel == "alternate" {
			return link.Href
		}
	}
	if len(e.Links) > 0 {
		return e.Links[0].Href
	}
	return ""
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]+>`)
	nonSlugRe     = regexp.MustCompile(`[^\w\s-]`)
	slugSepRe     = regexp.MustCompile(`[-\s]+`)
)

// stripHTML reduces markup to plain text, one line per block.
func stripHTML(content string) string {
	content = scriptStyleRe.ReplaceAllString(content, "")
	content = tagRe.ReplaceAllString(content, "\n")
	content = html.UnescapeString(content)

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func slugify(title string) string {
	slug := strings.ToLower(title)
	slug = nonSlugRe.ReplaceAllString(slug, "")
	slug = slugSepRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
