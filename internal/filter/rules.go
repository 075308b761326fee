package filter

// Rules is the configuration data the classifier applies. None of it is
// baked into the checks themselves.
type Rules struct {
	AllowedDomains    []string // Host must equal or be a subdomain of one of these
	TrapQueryMarkers  []string // Case-insensitive substrings that mark a query as a trap
	MaxQueryParams    int      // More parameters than this is a trap (0 disables)
	RejectAllQueries  bool     // Treat every query string as a trap
	BlockedExtensions []string // Path extensions that never serve HTML, without the dot
}

// DefaultAllowedDomains is the authorized crawl scope.
var DefaultAllowedDomains = []string{
	"ics.uci.edu",
	"cs.uci.edu",
	"informatics.uci.edu",
	"stat.uci.edu",
}

// DefaultTrapQueryMarkers lists calendar and archive-filter parameters that
// generate endless low value pages.
var DefaultTrapQueryMarkers = []string{
	"tribe",
	"ical=",
	"outlook-ical",
	"filter[",
	"affiliation_posts",
	"share=",
	"replytocom",
}

// DefaultMaxQueryParams caps the number of query parameters.
const DefaultMaxQueryParams = 3

// DefaultBlockedExtensions are file types skipped without fetching.
var DefaultBlockedExtensions = []string{
	"css", "js", "bmp", "gif", "jpg", "jpeg", "ico", "png", "tif", "tiff", "svg", "webp",
	"mid", "mp2", "mp3", "mp4", "wav", "avi", "mov", "mpeg", "ram", "m4v", "mkv",
	"ogg", "ogv", "webm", "wmv", "wma", "swf", "rm", "smil",
	"pdf", "ps", "eps", "tex", "ppt", "pptx", "doc", "docx", "xls", "xlsx",
	"names", "data", "dat", "psd", "epub", "cnf", "sha1", "thmx", "mso",
	"zip", "rar", "gz", "tgz", "bz2", "7z", "tar",
	"exe", "msi", "bin", "dmg", "iso", "dll",
	"csv", "tsv", "arff", "rtf", "jar", "war",
}

// DefaultRules returns a copy of the default rule set.
func DefaultRules() Rules {
	return Rules{
		AllowedDomains:    append([]string(nil), DefaultAllowedDomains...),
		TrapQueryMarkers:  append([]string(nil), DefaultTrapQueryMarkers...),
		MaxQueryParams:    DefaultMaxQueryParams,
		BlockedExtensions: append([]string(nil), DefaultBlockedExtensions...),
	}
}
