// Package benchmark turns raw ApacheBench reports into summary records
// and reads them back from the JSON artifact.
package benchmark

import (
	"regexp"
	"strconv"
)

// Parser extracts summary metrics from the text of one report. Fields
// it cannot find are left nil.
type Parser interface {
	Parse(text string) Summary
}

var (
	reRequestsPerSec   = regexp.MustCompile(`Requests per second:\s+([\d\.]+)`)
	reTimePerRequest   = regexp.MustCompile(`Time per request:\s+([\d\.]+)\s+\[ms\]\s+\(mean\)`)
	reTransferRate     = regexp.MustCompile(`Transfer rate:\s+([\d\.]+)\s+\[Kbytes/sec\]`)
	reCompleteRequests = regexp.MustCompile(`Complete requests:\s+(\d+)`)
	reFailedRequests   = regexp.MustCompile(`Failed requests:\s+(\d+)`)
)

// ABParser reads the report format printed by `ab`.
type ABParser struct{}

func NewABParser() *ABParser {
	return &ABParser{}
}

// Parse applies each pattern independently to the whole text. The first
// match wins. A capture which is not a valid number, like "1.2.3", is
// treated as absent.
func (ABParser) Parse(text string) Summary {
	return Summary{
		RequestsPerSec:   firstFloat(reRequestsPerSec, text),
		TimePerRequest:   firstFloat(reTimePerRequest, text),
		TransferRate:     firstFloat(reTransferRate, text),
		CompleteRequests: firstFloat(reCompleteRequests, text),
		FailedRequests:   firstFloat(reFailedRequests, text),
	}
}

func firstFloat(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
