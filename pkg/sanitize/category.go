package sanitize

// Category classifies a detected sensitive substring.
type Category string

const (
	APIKey        Category = "API_KEY"
	DBURL         Category = "DB_URL"
	GenericSecret Category = "GENERIC_SECRET"
	Email         Category = "EMAIL"
	FilePath      Category = "FILE_PATH"
)

// priorityOrder lists categories from highest to lowest priority. A substring
// matching two categories is tagged with the higher-priority one.
var priorityOrder = []Category{APIKey, DBURL, GenericSecret, Email, FilePath}

// Placeholder returns the redaction token for the category, e.g. "<API_KEY>".
func (c Category) Placeholder() string {
	return "<" + string(c) + ">"
}

// priority returns the rank of the category, lower is higher priority.
func (c Category) priority() int {
	for i, p := range priorityOrder {
		if p == c {
			return i
		}
	}
	return len(priorityOrder)
}

// Risk is the overall exposure level of a scanned document.
type Risk string

const (
	RiskNone Risk = "NONE"
	RiskLow  Risk = "LOW"
	RiskHigh Risk = "HIGH"
)

// highRisk reports whether findings in this category alone make a document
// unsafe to transmit without an explicit override.
func (c Category) highRisk() bool {
	switch c {
	case APIKey, DBURL, GenericSecret:
		return true
	}
	return false
}
