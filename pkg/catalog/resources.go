package catalog

import (
	"path"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// dataFilePrefix is the naming convention of the yearly data files.
	dataFilePrefix = "th_data_"
	// translationMarker flags glossary/translation companion files
	// ("käännökset") that match the data-file naming convention but hold no
	// invoice rows. Compared after accent stripping.
	translationMarker = "kaannos"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases a resource name and strips accents, so the
// ä/ö-bearing Finnish names of some catalog years compare stably.
func normalizeName(s string) string {
	result, _, _ := transform.String(stripAccents, strings.ToLower(s))
	return result
}

// ExtractYear returns the first run of exactly four consecutive digits in
// name. Resources without such a run carry no usable year tag and cannot be
// partitioned into the year column.
func ExtractYear(name string) (int, bool) {
	runStart := -1
	flush := func(end int) (int, bool) {
		if runStart < 0 || end-runStart != 4 {
			return 0, false
		}
		year := 0
		for _, r := range name[runStart:end] {
			year = year*10 + int(r-'0')
		}
		return year, true
	}

	for i, r := range name {
		if r >= '0' && r <= '9' {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if year, ok := flush(i); ok {
			return year, true
		}
		runStart = -1
	}
	return flush(len(name))
}

// FilterResources selects the in-scope data files from a dataset descriptor:
// names with the th_data_ prefix and a csv/tsv format or extension, minus
// translation files. The result is ordered by descending extracted year;
// ties keep the catalog's original order.
func FilterResources(ds *Dataset) []Resource {
	var selected []Resource
	for _, res := range ds.Resources {
		name := normalizeName(res.Name)
		if !strings.HasPrefix(name, dataFilePrefix) {
			continue
		}
		if strings.Contains(name, translationMarker) {
			continue
		}
		if !isDelimitedFormat(res) {
			continue
		}
		selected = append(selected, res)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		yi, _ := ExtractYear(selected[i].Name)
		yj, _ := ExtractYear(selected[j].Name)
		return yi > yj
	})
	return selected
}

func isDelimitedFormat(res Resource) bool {
	switch strings.ToLower(res.Format) {
	case "csv", "tsv":
		return true
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(res.Name), ".")) {
	case "csv", "tsv":
		return true
	}
	return false
}
