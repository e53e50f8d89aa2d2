// Package extract scans free text and HTML for personal email addresses.
package extract

import (
	"net/mail"
	"regexp"
	"sort"
	"strings"
)

// Syntactic pre-filter only; full validation happens after cleanup.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

const stripCutset = " ,;:<>()[]{}\n\t\r\"'"

// systemAddressFragments are matched as substrings against the lowercased
// candidate. Deliberately over-inclusive: an automated mailbox leaking through
// is worse than the occasional false drop.
var systemAddressFragments = []string{
	"noreply@",
	"no-reply@",
	"donotreply@",
	"support@",
	"help@",
	"info@",
	"admin@",
	"webmaster@",
	"postmaster@",
	"abuse@",
	"security@",
	"git@hf.co",
	"git@github.com",
	"noreply@github.com",
	"noreply@huggingface.co",
	"github@noreply.github.com",
	"notifications@github.com",
	"github-actions@github.com",
}

// Emails returns every valid, non-system email address found in text,
// normalized to lowercase, deduplicated and sorted. Empty or matchless input
// yields an empty slice, never an error.
func Emails(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, candidate := range emailPattern.FindAllString(text, -1) {
		cleaned := strings.Trim(candidate, stripCutset)
		if cleaned == "" || isSystemAddress(cleaned) {
			continue
		}
		normalized, ok := normalize(cleaned)
		if !ok {
			continue
		}
		seen[normalized] = struct{}{}
	}
	return sortedKeys(seen)
}

// EmailsInRegions restricts scanning to markup fragments whose class
// attribute mentions one of the region names, falling back to a full-document
// scan. Region matching is a tolerant textual pass, not a structural parse:
// it survives malformed markup and is allowed to over- and under-match.
func EmailsInRegions(html string, regions []string) []string {
	if len(regions) == 0 {
		return Emails(html)
	}
	seen := make(map[string]struct{})
	for _, region := range regions {
		pattern, err := regexp.Compile(`(?is)<[^>]*class="[^"]*` + regexp.QuoteMeta(region) + `[^"]*"[^>]*>(.*?)</[^>]*>`)
		if err != nil {
			continue
		}
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			for _, email := range Emails(match[1]) {
				seen[email] = struct{}{}
			}
		}
	}
	// Full-document scan as the safety net for markup the region pass missed.
	for _, email := range Emails(html) {
		seen[email] = struct{}{}
	}
	return sortedKeys(seen)
}

func isSystemAddress(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, fragment := range systemAddressFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// normalize validates the candidate as a bare RFC 5322 address and lowercases
// it. Invalid candidates are dropped silently.
func normalize(candidate string) (string, bool) {
	addr, err := mail.ParseAddress(candidate)
	if err != nil {
		return "", false
	}
	// ParseAddress accepts "Name <user@host>" forms; only bare addresses
	// should survive the regex, but guard anyway.
	if addr.Address != candidate {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for email := range set {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}
