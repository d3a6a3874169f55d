package scraper

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// PageSize is the number of items the listing renders per page.
const PageSize = 25

// Default request settings for listing pages.
const (
	DefaultBaseURL   = "https://www.douban.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// ListingURL returns the address of the zero-based page of listingID.
func ListingURL(baseURL, listingID string, page int) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/doulist/%s/?start=%d&sort=time&playable=0&sub_type=",
		base, url.PathEscape(listingID), page*PageSize)
}

// BrowserHeaders returns the header set sent with every listing request.
func BrowserHeaders(userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return http.Header{
		"User-Agent":      {userAgent},
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"},
		"Accept-Language": {"zh-CN,zh;q=0.9,en;q=0.8"},
	}
}
