package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleFor(t *testing.T) {
	// The same logical column scales differently per document.
	assert.Equal(t, scaleThousand, scaleFor(docDailyBusiness, colAmount))
	assert.Equal(t, scaleNone, scaleFor(docDailyBusiness, colRevenue))
	assert.Equal(t, scaleNone, scaleFor(docHourlyTransactions, colAmount))
	assert.Equal(t, scaleMillion, scaleFor(docChannelRevenue, colAmount))
	assert.Equal(t, scaleThousand, scaleFor(docChannelRevenue, colRevenue))
	assert.Equal(t, scaleThousand, scaleFor(docHourlyPerformance, colAmount))
}

func TestScaleForUnknownDefaultsToRaw(t *testing.T) {
	assert.Equal(t, scaleNone, scaleFor(docActiveUsers, colAmount))
	assert.Equal(t, scaleNone, scaleFor("unknown_document", colAmount))
}
