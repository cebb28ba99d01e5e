package normalizer

// Unit-scale factors applied before storage. The same logical quantity is
// pre-scaled differently across documents: the daily business report carries
// amounts in thousands, channel revenue in millions, hourly transactions raw.
// Factors are keyed per document AND column; never assume a document-wide
// scale.
const (
	scaleNone     int64 = 1
	scaleThousand int64 = 1_000
	scaleMillion  int64 = 1_000_000
)

// columnScales maps document ID -> logical column -> factor. Columns absent
// from a document's map are stored raw.
var columnScales = map[string]map[string]int64{
	docDailyBusiness: {
		colAmount:  scaleThousand,
		colRevenue: scaleNone,
	},
	docHourlyTransactions: {
		colAmount: scaleNone,
	},
	docCountryFlow: {
		colAmount: scaleThousand,
	},
	docChannelRevenue: {
		colAmount:  scaleMillion,
		colRevenue: scaleThousand,
	},
	docActiveUsers: {},
	docHourlyPerformance: {
		colAmount: scaleThousand,
	},
}

// scaleFor returns the factor for one column of one document.
func scaleFor(docID, column string) int64 {
	if cols, ok := columnScales[docID]; ok {
		if f, ok := cols[column]; ok {
			return f
		}
	}
	return scaleNone
}
