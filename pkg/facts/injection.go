package facts

import "strings"

// keywordCategories maps a small enumerated set of query keywords to the
// fact categories they anchor. MatchCategories is deliberately simple and
// conservative: a false negative only costs one extra orchestrator
// iteration, while a false positive would inject a misleading anchor.
var keywordCategories = []struct {
	keywords   []string
	categories []string
}{
	{keywords: []string{"ram", "memory"}, categories: []string{"total_ram"}},
	{keywords: []string{"cpu", "processor"}, categories: []string{"cpu_model", "cpu_cores", "cpu_threads"}},
	{keywords: []string{"gpu", "graphics", "video card"}, categories: []string{"gpu_model"}},
	{keywords: []string{"disk", "storage", "space"}, categories: []string{"disk_usage_root", "disk_usage_home"}},
	{keywords: []string{"kernel"}, categories: []string{"kernel_version"}},
}

// MatchCategories inspects the query text against the enumerated keyword
// map and returns the distinct fact categories it anchors.
func MatchCategories(query string) []string {
	lower := strings.ToLower(query)
	seen := make(map[string]bool)
	var out []string
	for _, entry := range keywordCategories {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				for _, cat := range entry.categories {
					if !seen[cat] {
						seen[cat] = true
						out = append(out, cat)
					}
				}
				break
			}
		}
	}
	return out
}

// MatchPackageCategory recognizes "is <pkg> installed"-shaped queries and
// returns the package:<name> category, if any. This is a narrow,
// best-effort companion to MatchCategories for the package-presence intent.
func MatchPackageCategory(query string) (string, bool) {
	lower := strings.ToLower(query)
	if !strings.Contains(lower, "installed") {
		return "", false
	}
	fields := strings.Fields(query)
	for i, f := range fields {
		lf := strings.ToLower(strings.Trim(f, "?.,!"))
		if lf == "is" && i+1 < len(fields) {
			name := strings.Trim(fields[i+1], "?.,!")
			if name != "" {
				return "package:" + name, true
			}
		}
	}
	return "", false
}
