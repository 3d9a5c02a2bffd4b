// Package search opens the people-search results page the run works on.
package search

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/logger"
)

// BaseURL is the people-search endpoint
const BaseURL = "https://www.linkedin.com/search/results/people/"

// ResultsTimeout bounds the wait for the results list after navigation
const ResultsTimeout = 15 * time.Second

// BuildURL returns the configured URL, or a people search built from the
// keywords and geo URN
func BuildURL(cfg config.SearchConfig) (string, error) {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("invalid search url %q", cfg.URL)
		}
		return cfg.URL, nil
	}
	if len(cfg.Keywords) == 0 {
		return "", fmt.Errorf("search needs either url or keywords")
	}

	params := url.Values{}
	params.Add("keywords", strings.Join(cfg.Keywords, " "))
	if cfg.GeoURN != "" {
		params.Add("geoUrn", cfg.GeoURN)
	}
	params.Add("origin", "FACETED_SEARCH")

	return BaseURL + "?" + params.Encode(), nil
}

// Open navigates page to rawURL and waits for the results list. A missing
// list is logged, not fatal: the run reports an empty page instead.
func Open(page *rod.Page, rawURL string) error {
	logger.Info("Opening search results", "url", rawURL)
	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("failed to navigate to search: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}

	_, err := page.Timeout(ResultsTimeout).Race().
		Element("ul.reusable-search__entity-result-list").
		Element(".search-results-container").
		Element("li.reusable-search__result-container").
		Do()
	if err != nil {
		logger.Warn("Search results container not found, continuing anyway", "error", err)
	}
	return nil
}

// SavePage writes the current document to path so it can be inspected
// offline with the probe command
func SavePage(page *rod.Page, path string) error {
	html, err := page.HTML()
	if err != nil {
		return fmt.Errorf("failed to read page html: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	logger.Info("Saved results page", "path", path)
	return nil
}
