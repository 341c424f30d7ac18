package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gocolly/colly"

	"runner-scout/internal/domain"
)

// DefaultNewPairsURL is the DexScreener new-pairs page.
const DefaultNewPairsURL = "https://dexscreener.com/new-pairs"

// maxPairsPerLookup is the number of pair addresses the DexScreener pairs
// endpoint accepts in one call.
const maxPairsPerLookup = 30

var (
	// pairObjectPattern matches flat JSON objects mentioning pairAddress
	// inside inline scripts.
	pairObjectPattern = regexp.MustCompile(`\{[^{}]*"pairAddress"[^{}]*\}`)

	pairAddressPattern = regexp.MustCompile(`"pairAddress"\s*:\s*"([^"\s]+)"`)
	chainIDPattern     = regexp.MustCompile(`"chainId"\s*:\s*"([^"\s]+)"`)
)

// pairProbe reads the identity of a pair item.
type pairProbe struct {
	ChainID     string `json:"chainId"`
	PairAddress string `json:"pairAddress"`
}

// pairRef is one pair found on the page. Scraped is the flat object when
// the page had one, else a minimal chainId/pairAddress object.
type pairRef struct {
	chainID string
	address string
	scraped json.RawMessage
}

// NewPairsAdapter scrapes the DexScreener new-pairs HTML page for pair
// references and completes them from the DexScreener pairs API. Pairs the
// API does not return keep the scraped object.
type NewPairsAdapter struct {
	Base
	client  *Client
	pageURL string
	apiURL  string
}

// NewNewPairs creates a new-pairs page scraper. apiURL is the DexScreener
// API root used to complete scraped pairs.
func NewNewPairs(base Base, client *Client, pageURL, apiURL string) *NewPairsAdapter {
	if pageURL == "" {
		pageURL = DefaultNewPairsURL
	}
	if apiURL == "" {
		apiURL = DefaultDexScreenerURL
	}
	return &NewPairsAdapter{Base: base, client: client, pageURL: pageURL, apiURL: strings.TrimRight(apiURL, "/")}
}

// Name returns the source name.
func (a *NewPairsAdapter) Name() string {
	return a.Base.Name
}

// Fetch visits the page, completes the found pairs from the API and
// returns them in document order.
func (a *NewPairsAdapter) Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	refs, err := a.scrape(ctx, limit)
	if err != nil {
		return nil, err
	}

	full := a.lookup(ctx, refs)

	fetchedAt := a.now()
	records := make([]domain.RawRecord, 0, len(refs))
	for _, ref := range refs {
		payload := ref.scraped
		if p, ok := full[ref.address]; ok {
			payload = p
		}
		records = append(records, a.record(SchemaDexScreener, domain.ParseChain(ref.chainID), fetchedAt, payload))
	}

	return truncate(records, limit), nil
}

// scrape collects up to limit pair references on the adapter chain.
func (a *NewPairsAdapter) scrape(ctx context.Context, limit int) ([]pairRef, error) {
	var refs []pairRef
	found := make(map[string]struct{})

	err := a.client.Do(ctx, func(ctx context.Context) error {
		c := colly.NewCollector(
			colly.UserAgent(a.client.UserAgent()),
			colly.AllowURLRevisit(),
		)
		c.SetRequestTimeout(a.client.Timeout())

		c.OnHTML("script", func(e *colly.HTMLElement) {
			for _, ref := range extractPairRefs(e.Text) {
				if limit > 0 && len(refs) >= limit {
					return
				}
				if _, dup := found[ref.address]; dup {
					continue
				}
				chain := domain.ParseChain(ref.chainID)
				if chain != "" && !a.accepts(chain) {
					continue
				}
				found[ref.address] = struct{}{}
				refs = append(refs, ref)
			}
		})

		var statusErr error
		c.OnError(func(r *colly.Response, err error) {
			if r != nil && r.StatusCode != 0 {
				statusErr = &SourceError{Source: a.Base.Name, Kind: KindStatus, Status: r.StatusCode}
			}
		})

		if err := c.Visit(a.pageURL); err != nil {
			if statusErr != nil {
				return statusErr
			}
			return fmt.Errorf("visit %s: %w", a.pageURL, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// lookup fetches the full pair objects for refs, batched per chain. A failed
// batch leaves its pairs out of the result; a cancelled context or an open
// breaker stops further batches.
func (a *NewPairsAdapter) lookup(ctx context.Context, refs []pairRef) map[string]json.RawMessage {
	full := make(map[string]json.RawMessage)

	var chains []string
	byChain := make(map[string][]string)
	for _, ref := range refs {
		if ref.chainID == "" {
			continue
		}
		if _, ok := byChain[ref.chainID]; !ok {
			chains = append(chains, ref.chainID)
		}
		byChain[ref.chainID] = append(byChain[ref.chainID], ref.address)
	}

	for _, chainID := range chains {
		addrs := byChain[chainID]
		for start := 0; start < len(addrs); start += maxPairsPerLookup {
			end := min(start+maxPairsPerLookup, len(addrs))
			escaped := make([]string, 0, end-start)
			for _, addr := range addrs[start:end] {
				escaped = append(escaped, url.PathEscape(addr))
			}
			endpoint := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", a.apiURL, url.PathEscape(chainID), strings.Join(escaped, ","))

			var resp dexPairsResponse
			if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
				var se *SourceError
				if errors.As(err, &se) && (se.Kind == KindCanceled || se.Kind == KindBreakerOpen) {
					return full
				}
				continue
			}
			for _, item := range resp.Pairs {
				var probe pairProbe
				if err := json.Unmarshal(item, &probe); err != nil || probe.PairAddress == "" {
					continue
				}
				full[probe.PairAddress] = item
			}
		}
	}
	return full
}

// extractPairRefs finds pair addresses in a script body in document order.
// Flat objects are kept as the scraped payload; for addresses inside nested
// objects the chain is taken from the nearest preceding chainId.
func extractPairRefs(text string) []pairRef {
	flat := make(map[string]pairRef)
	for _, match := range pairObjectPattern.FindAllString(text, -1) {
		var probe pairProbe
		if err := json.Unmarshal([]byte(match), &probe); err != nil || probe.PairAddress == "" {
			continue
		}
		if _, ok := flat[probe.PairAddress]; !ok {
			flat[probe.PairAddress] = pairRef{chainID: probe.ChainID, address: probe.PairAddress, scraped: json.RawMessage(match)}
		}
	}

	chainLocs := chainIDPattern.FindAllStringSubmatchIndex(text, -1)
	next := 0
	chainID := ""

	var refs []pairRef
	for _, loc := range pairAddressPattern.FindAllStringSubmatchIndex(text, -1) {
		for next < len(chainLocs) && chainLocs[next][0] < loc[0] {
			chainID = text[chainLocs[next][2]:chainLocs[next][3]]
			next++
		}

		address := text[loc[2]:loc[3]]
		if ref, ok := flat[address]; ok {
			refs = append(refs, ref)
			continue
		}
		scraped, err := json.Marshal(pairProbe{ChainID: chainID, PairAddress: address})
		if err != nil {
			continue
		}
		refs = append(refs, pairRef{chainID: chainID, address: address, scraped: scraped})
	}
	return refs
}

var _ Adapter = (*NewPairsAdapter)(nil)
