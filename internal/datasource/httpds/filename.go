package httpds

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// BaseURL is where the monthly address-point export is published.
const BaseURL = "https://vdp.cuzk.cz/vymenny_format/csv/"

// ArchiveURL is the export published on day (the last day of a month):
// <BaseURL><YYYYMMDD>_OB_ADR_csv.zip.
func ArchiveURL(day time.Time) string {
	return BaseURL + day.Format("20060102") + "_OB_ADR_csv.zip"
}

// LastPublished is the last day of the month before now, in UTC. Exports are
// published once a month for the month's final day.
func LastPublished(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeFilenameFromURL derives a filesystem-safe name from the last path
// segment of rawURL, falling back to an xxh3 digest of the whole URL.
func SafeFilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		base := filenameCleaner.ReplaceAllString(path.Base(u.Path), "_")
		if base != "" && base != "." && base != "_" {
			return base
		}
	}
	return strconv.FormatUint(xxh3.HashString(rawURL), 16)
}
