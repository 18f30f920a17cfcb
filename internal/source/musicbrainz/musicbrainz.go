package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/larkvale/metamerge/internal/source"
)

const (
	defaultBaseURL = "https://musicbrainz.org/ws/2"
	userAgent      = "metamerge/0.1 (+https://github.com/larkvale/metamerge)"
)

// FieldAlbumID is the field name this source owns.
const FieldAlbumID = "mb_albumid"

// Adapter implements source.Source for the MusicBrainz WS2 API.
type Adapter struct {
	client  *http.Client
	limiter *source.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *source.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *source.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("source", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the source name.
func (a *Adapter) Name() source.Name { return source.NameMusicBrainz }

// SupportsLookup reports that releases can be fetched by MBID.
func (a *Adapter) SupportsLookup() bool { return true }

// SupportsSearch reports that releases can be searched by entity fields.
func (a *Adapter) SupportsSearch() bool { return true }

// OwnedFields returns the identifier fields owned by MusicBrainz.
func (a *Adapter) OwnedFields() []string { return []string{FieldAlbumID} }

// LookupByID fetches a release by its MBID.
func (a *Adapter) LookupByID(ctx context.Context, id string) (*source.Candidate, error) {
	params := url.Values{
		"inc": {"artist-credits+labels"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/release/" + url.PathEscape(id) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	var release mbRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}

	cand := candidateFrom(&release)
	return &cand, nil
}

// Search queries the release search endpoint with the entity's artist
// and title.
func (a *Adapter) Search(ctx context.Context, fields source.Fields) ([]source.Candidate, error) {
	artist := fields.String("artist")
	title := fields.String("album")
	if title == "" {
		title = fields.String("title")
	}
	if artist == "" && title == "" {
		return nil, nil
	}

	var terms []string
	if title != "" {
		terms = append(terms, fmt.Sprintf("release:%q", title))
	}
	if artist != "" {
		terms = append(terms, fmt.Sprintf("artist:%q", artist))
	}

	params := url.Values{
		"query": {strings.Join(terms, " AND ")},
		"fmt":   {"json"},
		"limit": {"10"},
	}
	reqURL := a.baseURL + "/release?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, "")
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	candidates := make([]source.Candidate, 0, len(resp.Releases))
	for i := range resp.Releases {
		candidates = append(candidates, candidateFrom(&resp.Releases[i]))
	}

	a.logger.Debug("release search completed",
		slog.String("artist", artist),
		slog.String("title", title),
		slog.Int("results", len(candidates)))

	return candidates, nil
}

// candidateFrom maps a MusicBrainz release to a candidate field set.
func candidateFrom(r *mbRelease) source.Candidate {
	fields := source.Fields{
		"album":      r.Title,
		FieldAlbumID: r.ID,
	}
	if artist := joinCredit(r.ArtistCredit); artist != "" {
		fields["artist"] = artist
	}
	if year, ok := yearOf(r.Date); ok {
		fields["year"] = year
	}
	if r.Country != "" {
		fields["country"] = r.Country
	}
	if len(r.LabelInfo) > 0 && r.LabelInfo[0].Label.Name != "" {
		fields["label"] = r.LabelInfo[0].Label.Name
	}
	return source.Candidate{ID: r.ID, Fields: fields}
}

func joinCredit(credits []artistCredit) string {
	var b strings.Builder
	for _, c := range credits {
		b.WriteString(c.Name)
		b.WriteString(c.JoinPhrase)
	}
	return b.String()
}

func yearOf(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

// doRequest executes a rate-limited GET. A 404 on a lookup becomes
// NotFoundError; transport and server failures become UnavailableError.
func (a *Adapter) doRequest(ctx context.Context, reqURL, lookupID string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, source.NameMusicBrainz); err != nil {
		return nil, &source.UnavailableError{
			Source: source.NameMusicBrainz,
			Cause:  fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &source.UnavailableError{Source: source.NameMusicBrainz, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound && lookupID != "":
		return nil, &source.NotFoundError{Source: source.NameMusicBrainz, ID: lookupID}
	case resp.StatusCode != http.StatusOK:
		return nil, &source.UnavailableError{
			Source: source.NameMusicBrainz,
			Cause:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &source.UnavailableError{Source: source.NameMusicBrainz, Cause: err}
	}
	return body, nil
}
