// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/indicator-engine/internal/cache"
	"github.com/pdiddy/indicator-engine/internal/httputil"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// API base URLs for DOI metadata services. Declared as vars so tests can
// substitute httptest servers.
var (
	crossrefAPIBase  = "https://api.crossref.org/works/"
	unpaywallAPIBase = "https://api.unpaywall.org/v2/"
)

// Enricher populates Citation enrichment fields from Crossref (bibliographic
// metadata) and Unpaywall (open-access status). Both lookups degrade to "no
// enrichment" on 404/429/timeout; enrichment never fails ingestion.
type Enricher struct {
	client *http.Client
	cfg    types.EnrichConfig

	// meta and oa cache responses per DOI so each identifier is looked up
	// at most once per enrichment pass.
	meta *cache.Cache[string, crossrefWork]
	oa   *cache.Cache[string, types.OpenAccessStatus]
}

// NewEnricher builds an Enricher with a bounded per-DOI response cache.
func NewEnricher(cfg types.EnrichConfig) *Enricher {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}
	return &Enricher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		meta:   cache.New[string, crossrefWork](cfg.CacheSize, cfg.CacheTTL),
		oa:     cache.New[string, types.OpenAccessStatus](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Enrich fills the enrichment fields of c in place. Citations without a DOI
// are returned unchanged. Lookup failures are reported through the returned
// error for logging but leave c usable.
func (e *Enricher) Enrich(ctx context.Context, c *types.Citation) error {
	if c == nil || !c.HasDOI() {
		return nil
	}

	var firstErr error

	work, err := e.lookupCrossref(ctx, c.DOI)
	if err != nil {
		firstErr = err
	} else {
		applyCrossref(c, work)
	}

	status, err := e.lookupUnpaywall(ctx, c.DOI)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
	} else if status != nil {
		c.OpenAccess = status
	}

	return firstErr
}

// lookupCrossref fetches bibliographic metadata for a DOI, serving repeats
// from the cache.
func (e *Enricher) lookupCrossref(ctx context.Context, doi string) (crossrefWork, error) {
	if w, ok := e.meta.Get(doi); ok {
		return w, nil
	}

	reqURL := crossrefAPIBase + url.PathEscape(doi)
	if e.cfg.Email != "" {
		reqURL += "?mailto=" + url.QueryEscape(e.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return crossrefWork{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, e.client, req, e.cfg.MaxRetries)
	if err != nil {
		return crossrefWork{}, fmt.Errorf("Crossref request for %s: %w", doi, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return crossrefWork{}, fmt.Errorf("Crossref returned HTTP %d for %s", resp.StatusCode, doi)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return crossrefWork{}, fmt.Errorf("parsing Crossref response for %s: %w", doi, err)
	}

	e.meta.Put(doi, cr.Message)
	return cr.Message, nil
}

// lookupUnpaywall fetches open-access status for a DOI, serving repeats from
// the cache.
func (e *Enricher) lookupUnpaywall(ctx context.Context, doi string) (*types.OpenAccessStatus, error) {
	if s, ok := e.oa.Get(doi); ok {
		return &s, nil
	}

	reqURL := unpaywallAPIBase + url.PathEscape(doi)
	if e.cfg.Email != "" {
		reqURL += "?email=" + url.QueryEscape(e.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, e.client, req, e.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("Unpaywall request for %s: %w", doi, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Unpaywall returned HTTP %d for %s", resp.StatusCode, doi)
	}

	var ur unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("parsing Unpaywall response for %s: %w", doi, err)
	}

	status := types.OpenAccessStatus{
		IsOA:   ur.IsOA,
		Status: ur.OAStatus,
	}
	if ur.BestOALocation != nil {
		status.License = ur.BestOALocation.License
		status.BestURL = ur.BestOALocation.URLForPDF
		if status.BestURL == "" {
			status.BestURL = ur.BestOALocation.URL
		}
	}

	e.oa.Put(doi, status)
	return &status, nil
}

// applyCrossref copies work metadata onto the citation, leaving fields
// untouched when Crossref had no value for them.
func applyCrossref(c *types.Citation, work crossrefWork) {
	if len(work.Title) > 0 && work.Title[0] != "" {
		c.Title = work.Title[0]
	}
	if len(work.ContainerTitle) > 0 {
		c.Journal = work.ContainerTitle[0]
	}
	for _, a := range work.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			c.Authors = append(c.Authors, name)
		}
	}
	if len(work.Issued.DateParts) > 0 && len(work.Issued.DateParts[0]) > 0 {
		c.Year = work.Issued.DateParts[0][0]
	}
	if work.Abstract != "" {
		c.Abstract = stripJATSMarkup(work.Abstract)
	}
}

// jatsTagRe matches JATS XML tags Crossref embeds in abstract fields.
var jatsTagRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// stripJATSMarkup removes JATS tags from a Crossref abstract.
func stripJATSMarkup(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(jatsTagRe.ReplaceAllString(s, " "), " "))
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Author         []crossrefAuthor `json:"author"`
	Issued         crossrefDate     `json:"issued"`
	Abstract       string           `json:"abstract"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// Unpaywall API JSON structures.
type unpaywallResponse struct {
	IsOA           bool               `json:"is_oa"`
	OAStatus       string             `json:"oa_status"`
	BestOALocation *unpaywallLocation `json:"best_oa_location"`
}

type unpaywallLocation struct {
	URL       string `json:"url"`
	URLForPDF string `json:"url_for_pdf"`
	License   string `json:"license"`
}
