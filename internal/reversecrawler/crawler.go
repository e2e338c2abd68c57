package reversecrawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

// archiveHubPaths are the directory-listing-style paths aggressive archive
// discovery additionally probes and treats as link hubs.
var archiveHubPaths = []string{"/archive/", "/downloads/", "/veroeffentlichungen/"}

var knownArtifactMIMEPrefixes = []string{"text/html", "application/pdf", "application/xhtml"}

// Result is the output of one Crawl run: newly fetched Artifacts and the
// template Pattern(s) inferred from which candidates succeeded. Patterns are
// returned for the caller to upsert through pattern.Store.UpsertLearned --
// the Crawler itself has no PatternStore dependency.
type Result struct {
	Artifacts []*model.Artifact
	Patterns  []*model.Pattern
}

// Crawler implements the Reverse Crawler algorithm from spec.md §4.4.
type Crawler struct {
	fetcher interfaces.Fetcher
	extract interfaces.Extractor // optional, used only for archive hub link parsing
	cfg     config.ReverseCrawlerConfig
	limiter *hostLimiter
	logger  arbor.ILogger
	now     func() time.Time
}

// New constructs a Crawler. extractor may be nil; aggressive archive
// discovery is then skipped even if cfg.AggressiveArchiveDiscovery is set.
func New(fetcher interfaces.Fetcher, extractor interfaces.Extractor, cfg config.ReverseCrawlerConfig, logger arbor.ILogger) *Crawler {
	delay := rate.Every(cfg.RequestDelay)
	if cfg.RequestDelay <= 0 {
		delay = rate.Inf
	}
	return &Crawler{
		fetcher: fetcher,
		extract: extractor,
		cfg:     cfg,
		limiter: newHostLimiter(delay),
		logger:  logger,
		now:     time.Now,
	}
}

// Crawl generalizes seedURL into a template, enumerates candidate URLs for
// targetYears, and probes each through the Fetcher. It returns every
// successfully fetched Artifact and, if at least one candidate succeeded,
// the inferred Pattern for the caller to upsert.
func (c *Crawler) Crawl(ctx context.Context, operatorKey, seedURL string, targetYears []int) (*Result, error) {
	seed, err := ParseSeed(seedURL)
	if err != nil {
		return nil, err
	}
	tmpl := BuildTemplate(seed, c.now())

	if tmpl.VariableCount() > c.cfg.MaxReverseDepth {
		return nil, fmt.Errorf("seed url has %d simultaneous temporal components, exceeds max_reverse_depth %d",
			tmpl.VariableCount(), c.cfg.MaxReverseDepth)
	}

	result := &Result{}

	if tmpl.VariableCount() == 0 {
		c.logger.Debug().Str("operator_key", operatorKey).Msg("seed url has no temporal components, nothing to enumerate")
		return result, nil
	}

	candidates := enumerateCandidates(tmpl, targetYears, c.cfg.MaxURLsPerPattern)

	var successCount, probed int
	seen := make(map[string]bool, len(candidates))
	for _, candURL := range candidates {
		if seen[candURL] || probed >= c.cfg.MaxURLsPerPattern {
			continue
		}
		seen[candURL] = true
		probed++

		if err := c.limiter.Wait(ctx, candURL); err != nil {
			break // context cancelled
		}
		res, err := c.fetcher.Fetch(ctx, candURL, time.Time{})
		if err != nil {
			c.logger.Trace().Str("url", candURL).Err(err).Msg("reverse-crawl probe failed")
			continue
		}
		if !isSuccessfulArtifact(res) {
			continue
		}
		successCount++
		result.Artifacts = append(result.Artifacts, artifactFrom(operatorKey, candURL, res, c.now()))
	}

	if successCount > 0 {
		result.Patterns = append(result.Patterns, &model.Pattern{
			OperatorKey:  operatorKey,
			Kind:         model.PatternURLTemplate,
			Template:     tmpl.TemplateString(),
			Variables:    append([]string(nil), tmpl.Holes...),
			SuccessCount: successCount,
			FailureCount: probed - successCount,
			Verification: model.VerificationUnverified,
			LastUsedAt:   c.now(),
		})
	}

	if c.cfg.AggressiveArchiveDiscovery && c.extract != nil {
		hubArtifacts := c.probeArchiveHubs(ctx, operatorKey, seed)
		result.Artifacts = append(result.Artifacts, hubArtifacts...)
	}

	return result, nil
}

// probeArchiveHubs fetches the well-known archive/downloads/Veröffentlichungen
// paths under seed's host and, for any that return HTML, parses their links
// as further candidate artifacts. Disabled unless AggressiveArchiveDiscovery
// is set, since many sites serve HTML 200 for nonexistent paths.
func (c *Crawler) probeArchiveHubs(ctx context.Context, operatorKey string, seed *Seed) []*model.Artifact {
	var artifacts []*model.Artifact
	for _, hub := range archiveHubPaths {
		hubURL := seed.Scheme + "://" + seed.Host + hub
		if err := c.limiter.Wait(ctx, hubURL); err != nil {
			return artifacts
		}
		res, err := c.fetcher.Fetch(ctx, hubURL, time.Time{})
		if err != nil || res.Status < 200 || res.Status >= 300 {
			continue
		}
		bundle, err := c.extract.Extract(res.Body, res.ContentType, operatorKey)
		if err != nil {
			continue
		}
		for _, link := range bundle.Links {
			linkRes, err := c.fetcher.Fetch(ctx, link, time.Time{})
			if err != nil || !isSuccessfulArtifact(linkRes) {
				continue
			}
			artifacts = append(artifacts, artifactFrom(operatorKey, link, linkRes, c.now()))
		}
	}
	return artifacts
}

func isSuccessfulArtifact(res *interfaces.FetchResult) bool {
	if res.Status < 200 || res.Status >= 300 {
		return false
	}
	ct := strings.ToLower(res.ContentType)
	for _, prefix := range knownArtifactMIMEPrefixes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

func artifactFrom(operatorKey, sourceURL string, res *interfaces.FetchResult, now time.Time) *model.Artifact {
	sum := sha256.Sum256(res.Body)
	return &model.Artifact{
		ID:          uuid.NewString(),
		OperatorKey: operatorKey,
		SourceURL:   sourceURL,
		MIME:        res.ContentType,
		FetchedAt:   now,
		Hash:        hex.EncodeToString(sum[:]),
		SizeBytes:   int64(len(res.Body)),
	}
}

// enumerateCandidates renders the cartesian product of targetYears against
// every year hole, 1-12 against every month hole, and Q1-Q4 against every
// quarter hole, skipping weekday holes (bound to their original seed
// value). Generation stops once cap candidates have been produced.
func enumerateCandidates(tmpl *Template, targetYears []int, maxCandidates int) []string {
	bindingSets := []map[string]string{{}}
	for _, hole := range tmpl.Holes {
		values := candidateValues(tmpl, hole, targetYears)
		if len(values) == 0 {
			values = []string{tmpl.Originals[hole]}
		}
		bindingSets = expand(bindingSets, hole, values)
		if len(bindingSets) >= maxCandidates {
			break
		}
	}

	var out []string
	for _, bindings := range bindingSets {
		if len(out) >= maxCandidates {
			break
		}
		url, err := tmpl.Render(bindings)
		if err != nil {
			continue
		}
		out = append(out, url)
	}
	return out
}

func candidateValues(tmpl *Template, hole string, targetYears []int) []string {
	switch tmpl.HoleKinds[hole] {
	case TokenYear:
		values := make([]string, 0, len(targetYears))
		for _, y := range targetYears {
			values = append(values, strconv.Itoa(y))
		}
		return values
	case TokenMonth:
		values := make([]string, 0, 12)
		for m := 1; m <= 12; m++ {
			values = append(values, fmt.Sprintf("%02d", m))
		}
		return values
	case TokenQuarter:
		return []string{"Q1", "Q2", "Q3", "Q4"}
	default: // weekday: not target-enumerable, keep the seed's own value
		return nil
	}
}

// expand is the cartesian-product step: for each existing partial binding
// set, fan out one copy per candidate value of hole.
func expand(bindingSets []map[string]string, hole string, values []string) []map[string]string {
	out := make([]map[string]string, 0, len(bindingSets)*len(values))
	for _, base := range bindingSets {
		for _, v := range values {
			next := make(map[string]string, len(base)+1)
			for k, bv := range base {
				next[k] = bv
			}
			next[hole] = v
			out = append(out, next)
		}
	}
	return out
}
